package device

import (
  "fmt"
  "strings"
)

// Reading is a single snapshot of the measurements reported by a hydrometer.
type Reading struct {
  // Celsius
  Temperature float64
  SpecificGravity float64
  // Specific gravity change per day
  SpecificGravityTrend float64
  // Device-internal units
  Acceleration [3]float64
  BatteryLevel uint8
  // dBm
  SignalStrength int
  ProtocolVersion uint8
  FirmwareVersion string

  HasSpecificGravityTrend bool
  HasFirmwareVersion bool
}

func (r Reading) String() string {
  fields := []string{
    fmt.Sprintf("Temperature=%.2f", r.Temperature),
    fmt.Sprintf("SpecificGravity=%.4f", r.SpecificGravity),
    fmt.Sprintf("Battery=%d%%", r.BatteryLevel),
    fmt.Sprintf("RSSI=%d", r.SignalStrength),
    fmt.Sprintf("Protocol=%d", r.ProtocolVersion),
  }

  if r.HasSpecificGravityTrend {
    fields = append(fields, fmt.Sprintf("Trend=%.4f/d", r.SpecificGravityTrend))
  }

  if r.HasFirmwareVersion {
    fields = append(fields, fmt.Sprintf("Firmware=%q", r.FirmwareVersion))
  }

  return fmt.Sprintf("Reading[%v]", strings.Join(fields, ","))
}
