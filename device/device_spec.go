package device

import (
  "fmt"
  "net"
  "strings"

  "github.com/rs/zerolog/log"
)

// DeviceSpec describes a device to monitor, e.g. `addr=78:e3:6d:3c:b9:94,name=fermenter-1`.
type DeviceSpec map[string]string

const (
  DeviceSpecFieldName = "name"
  DeviceSpecFieldAddress = "addr"
)

func NewDeviceSpec(s string) DeviceSpec {
  spec := DeviceSpec{}

  for _, entry := range strings.Split(s, ",") {
    key, value, found := strings.Cut(entry, "=")

    if !found {
      log.Warn().Str("Entry", entry).Msg("Skipping invalid device spec entry")
      continue
    }

    spec[strings.TrimSpace(key)] = strings.TrimSpace(value)
  }

  return spec
}

func (ds DeviceSpec) Name() string {
  return ds[DeviceSpecFieldName]
}

func (ds DeviceSpec) Addr() string {
  return ds[DeviceSpecFieldAddress]
}

func (ds DeviceSpec) HardwareAddr() (net.HardwareAddr, error) {
  addr := ds.Addr()

  if addr == "" {
    return nil, fmt.Errorf("missing %q field", DeviceSpecFieldAddress)
  }

  hwAddr, err := net.ParseMAC(addr)

  if err != nil {
    return nil, fmt.Errorf("invalid addr: %w", err)
  }

  if len(hwAddr) != 6 {
    return nil, fmt.Errorf("invalid addr %q: not a 48-bit address", addr)
  }

  return hwAddr, nil
}
