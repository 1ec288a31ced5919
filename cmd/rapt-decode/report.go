package main

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/robertof/go-rapt-exporter/device/rapt"
)

type report struct {
	Name            string         `json:"name,omitempty"`
	Recognized      bool           `json:"recognized"`
	Metrics         *metricsReport `json:"metrics,omitempty"`
	FirmwareVersion string         `json:"firmware_version,omitempty"`
	SignalStrength  int            `json:"rssi"`
	Routes          []routeReport  `json:"routes"`
	Anomalies       []anomalyReport `json:"anomalies,omitempty"`
}

type metricsReport struct {
	ProtocolVersion      uint8      `json:"protocol_version"`
	Temperature          float64    `json:"temperature"`
	SpecificGravity      float64    `json:"specific_gravity"`
	SpecificGravityTrend *float64   `json:"specific_gravity_trend,omitempty"`
	Acceleration         [3]float64 `json:"acceleration"`
	Battery              int        `json:"battery"`
	EmbeddedAddr         string     `json:"embedded_addr,omitempty"`
}

type routeReport struct {
	VendorID       string `json:"vendor_id"`
	Classification string `json:"classification"`
}

type anomalyReport struct {
	VendorID string `json:"vendor_id"`
	Kind     string `json:"kind"`
	Payload  string `json:"payload"`
	Error    string `json:"error"`
}

// decodeFields decodes hex manufacturer data fields as if they came in one advertisement.
func decodeFields(fields []string, hwAddr net.HardwareAddr, rssi int) (*report, error) {
	raw := make([][]byte, 0, len(fields))

	for _, field := range fields {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")

		data, err := hex.DecodeString(field)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q is not valid hex", field)
		}
		if len(data) < 2 {
			return nil, errors.Errorf("field %q is too short to hold a company id", field)
		}

		raw = append(raw, data)
	}

	update := rapt.Decode(rapt.FromManufacturerData(raw...), hwAddr, rssi)

	log.Trace().Stringer("Update", update).Msg("decoded advertisement")

	return newReport(update), nil
}

func newReport(u rapt.Update) *report {
	rep := &report{
		Recognized:     u.Recognized(),
		SignalStrength: u.SignalStrength,
		Routes:         make([]routeReport, 0, len(u.Routes)),
	}

	if u.Identity != nil {
		rep.Name = u.Identity.Name
	}

	if u.Version != nil {
		rep.FirmwareVersion = u.Version.Version
	}

	if m := u.Metrics; m != nil {
		rep.Metrics = &metricsReport{
			ProtocolVersion: m.ProtocolVersion,
			Temperature:     m.Temperature,
			SpecificGravity: m.SpecificGravity,
			Acceleration:    [3]float64{m.AccelerationX, m.AccelerationY, m.AccelerationZ},
			Battery:         m.Battery,
		}

		if m.HasSpecificGravityTrend {
			trend := m.SpecificGravityTrend
			rep.Metrics.SpecificGravityTrend = &trend
		}

		if l, ok := m.Layout.(rapt.FrameV1); ok {
			rep.Metrics.EmbeddedAddr = l.HardwareAddr().String()
		}
	}

	for _, route := range u.Routes {
		rep.Routes = append(rep.Routes, routeReport{
			VendorID:       vendorID(route.VendorID),
			Classification: route.Classification.String(),
		})
	}

	for _, anomaly := range u.Anomalies {
		rep.Anomalies = append(rep.Anomalies, anomalyReport{
			VendorID: vendorID(anomaly.VendorID),
			Kind:     anomaly.Kind.String(),
			Payload:  hex.EncodeToString(anomaly.Payload),
			Error:    anomaly.Err.Error(),
		})
	}

	return rep
}

func vendorID(id uint16) string {
	return "0x" + hex.EncodeToString([]byte{byte(id >> 8), byte(id)})
}
