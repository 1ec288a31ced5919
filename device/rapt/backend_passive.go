package rapt

import (
  "bytes"
  "fmt"
  "net"
  "sync/atomic"

  "github.com/pkg/errors"
  "github.com/robertof/go-rapt-exporter/ble"
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/robertof/go-rapt-exporter/utils"
  "github.com/rs/zerolog/log"
)

// backendPassive turns advertisements into readings. Metrics and firmware version are sent
// in separate advertisements, so the last version seen is kept around and attached to
// every following reading.
type backendPassive struct {
  scanType device.PassiveBackendScanType
  firmwareVersion atomic.Pointer[string]
}

func newBackendPassive(scanType device.PassiveBackendScanType) *backendPassive {
  return &backendPassive{scanType: scanType}
}

func (b *backendPassive) ScanType() device.PassiveBackendScanType {
  return b.scanType
}

func (b *backendPassive) ParseAdvertisement(a ble.Advertisement) (reading device.Reading, err error) {
  manufacturerData := a.ManufacturerData()

  if len(manufacturerData) == 0 {
    return reading, device.ErrInvalidData
  }

  hwAddr, err := net.ParseMAC(a.Addr().String())

  if err != nil {
    return reading, errors.Wrapf(err, "tried to parse sender MAC address and failed!?")
  }

  update := Decode(FromManufacturerData(manufacturerData), hwAddr, a.RSSI())
  observeUpdate(update)
  logUpdate(hwAddr, update)

  if !update.Recognized() {
    return reading, errors.Wrap(device.ErrInvalidData, "rapt: unexpected manufacturer data")
  }

  if update.Version != nil {
    version := update.Version.Version
    b.firmwareVersion.Store(&version)
  }

  if update.Metrics == nil && update.Anomalies.Count(AnomalyInvalidLength) > 0 {
    return reading, errors.Wrapf(device.ErrCorruptedData, "rapt: metrics payload could not be decoded")
  }

  if update.Metrics == nil {
    return reading, errors.Wrapf(device.ErrNoReading, "rapt: advertisement routes %v", update.Routes)
  }

  if l, ok := update.Metrics.Layout.(FrameV1); ok {
    checkEmbeddedAddr(hwAddr, l)
  }

  reading = toReading(*update.Metrics, update.SignalStrength)

  if version := b.firmwareVersion.Load(); version != nil {
    reading.HasFirmwareVersion = true
    reading.FirmwareVersion = *version
  }

  return reading, nil
}

func toReading(f MetricsFrame, rssi int) (r device.Reading) {
  r.Temperature = f.Temperature
  r.SpecificGravity = f.SpecificGravity
  r.Acceleration = [3]float64{f.AccelerationX, f.AccelerationY, f.AccelerationZ}
  r.SignalStrength = rssi
  r.ProtocolVersion = f.ProtocolVersion
  r.SpecificGravityTrend, r.HasSpecificGravityTrend = f.SpecificGravityTrend, f.HasSpecificGravityTrend

  // battery is a percentage but nothing stops the raw value from going out of range.
  switch {
  case f.Battery < 0:
    r.BatteryLevel = 0
  case f.Battery > 100:
    r.BatteryLevel = 100
  default:
    r.BatteryLevel = uint8(f.Battery)
  }

  return r
}

func logUpdate(addr net.HardwareAddr, u Update) {
  for _, anomaly := range u.Anomalies {
    log.Warn().
      Stringer("Addr", addr).
      Str("VendorID", fmt.Sprintf("0x%04x", anomaly.VendorID)).
      Stringer("Kind", anomaly.Kind).
      Hex("Payload", anomaly.Payload).
      Err(anomaly.Err).
      Msg("rapt: anomaly while decoding advertisement")
  }

  for _, route := range u.Routes {
    switch route.Classification {
    case ClassificationIgnorable:
      log.Trace().Stringer("Addr", addr).Msg("rapt: ignoring hardware revision advertisement")
    case ClassificationUnrecognized:
      if route.VendorID != MetricsVendorID {
        log.Debug().
          Stringer("Addr", addr).
          Stringer("Route", route).
          Msg("rapt: manufacturer id not recognized")
      }
    }
  }

  log.Trace().
    Stringer("Addr", addr).
    Stringer("Update", u).
    Msg("rapt: decoded advertisement")
}

// checkEmbeddedAddr compares the address carried by version 1 frames with the sender. A
// mismatch is not an error: naming uses the sender address.
func checkEmbeddedAddr(sender net.HardwareAddr, l FrameV1) {
  embedded := l.Addr[:]

  if bytes.Equal(embedded, sender) || bytes.Equal(utils.Reverse(embedded), sender) {
    return
  }

  log.Debug().
    Stringer("Addr", sender).
    Stringer("EmbeddedAddr", l.HardwareAddr()).
    Msg("rapt: MAC address embedded in metrics differs from the sender address")
}
