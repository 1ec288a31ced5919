package rapt

import (
  "bytes"
  "encoding/binary"
  "fmt"
  "net"
  "strings"

  "github.com/robertof/go-rapt-exporter/utils"
)

// RawAdvertisement maps manufacturer (vendor) ids to the payload that follows them.
type RawAdvertisement map[uint16][]byte

// FromManufacturerData builds a RawAdvertisement out of BLE manufacturer specific data
// fields, each starting with a little endian company id. Fields shorter than the id are
// dropped.
func FromManufacturerData(fields ...[]byte) RawAdvertisement {
  adv := make(RawAdvertisement, len(fields))

  for _, field := range fields {
    if len(field) < 2 {
      continue
    }

    adv[binary.LittleEndian.Uint16(field)] = field[2:]
  }

  return adv
}

type Route struct {
  VendorID uint16
  Classification Classification
}

func (r Route) String() string {
  return fmt.Sprintf("0x%04x:%v", r.VendorID, r.Classification)
}

// Update is everything decoded out of a single advertisement.
type Update struct {
  // nil unless the advertisement carries a RAPT vendor id.
  Identity *Identity
  Metrics *MetricsFrame
  Version *VersionInfo
  // RSSI of the advertisement, in dBm. Passed through as-is.
  SignalStrength int

  Routes []Route
  Anomalies Anomalies
}

func (u Update) Recognized() bool {
  return u.Identity != nil
}

func (u Update) String() string {
  var fields []string

  if u.Identity != nil {
    fields = append(fields, fmt.Sprintf("Name=%q", u.Identity.Name))
  }

  if u.Metrics != nil {
    fields = append(fields, "Metrics=" + u.Metrics.String())
  }

  if u.Version != nil {
    fields = append(fields, fmt.Sprintf("Version=%q", u.Version.Version))
  }

  fields = append(fields,
    fmt.Sprintf("SignalStrength=%d", u.SignalStrength),
    fmt.Sprintf("Routes=%v", u.Routes),
    fmt.Sprintf("Anomalies=%d", len(u.Anomalies)))

  return "Update[" + strings.Join(fields, ",") + "]"
}

// routeOrder returns the vendor ids in processing order: version first, then metrics, then
// everything else in ascending order.
func routeOrder(adv RawAdvertisement) []uint16 {
  ids := make([]uint16, 0, len(adv))

  for _, known := range []uint16{VersionVendorID, MetricsVendorID} {
    if _, ok := adv[known]; ok {
      ids = append(ids, known)
    }
  }

  for _, id := range utils.SortedKeys(adv) {
    if id != VersionVendorID && id != MetricsVendorID {
      ids = append(ids, id)
    }
  }

  return ids
}

// Decode classifies every payload of the advertisement and decodes the ones it knows about.
// It never fails: payloads that can't be decoded are left out of the update, and the
// reason is recorded in Update.Anomalies when it's worth reporting.
func Decode(adv RawAdvertisement, addr net.HardwareAddr, rssi int) (u Update) {
  u.SignalStrength = rssi

  if IsRecognized(adv) {
    identity := NewIdentity(addr)
    u.Identity = &identity
  }

  for _, vendorID := range routeOrder(adv) {
    payload := adv[vendorID]
    class := Classify(vendorID, payload)

    u.Routes = append(u.Routes, Route{VendorID: vendorID, Classification: class})

    switch class {
    case ClassificationFirmwareVersion:
      if len(payload) == 0 {
        continue
      }

      info, anomaly := DecodeVersion(payload)

      if anomaly != nil {
        u.Anomalies = append(u.Anomalies, *anomaly)
        continue
      }

      u.Version = &info
    case ClassificationMetrics:
      frame, anomalies, err := DecodeMetrics(payload[metricsPrefixLen:])
      u.Anomalies = append(u.Anomalies, anomalies...)

      if err != nil {
        u.Anomalies = append(u.Anomalies, Anomaly{
          Kind: AnomalyInvalidLength,
          VendorID: vendorID,
          Payload: bytes.Clone(payload),
          Err: err,
        })
        continue
      }

      u.Metrics = &frame
    case ClassificationUnrecognized:
      if vendorID == MetricsVendorID {
        u.Anomalies = append(u.Anomalies, Anomaly{
          Kind: AnomalyInvalidLength,
          VendorID: vendorID,
          Payload: bytes.Clone(payload),
          Err: fmt.Errorf("%w: metrics payload has %d bytes, want %d",
            ErrInvalidLength, len(payload), metricsPayloadLen),
        })
      }
    }
  }

  return u
}
