package device_test

import (
  "testing"

  "github.com/robertof/go-rapt-exporter/device"
  "github.com/stretchr/testify/require"
)

func TestNewDeviceSpec(t *testing.T) {
  spec := device.NewDeviceSpec(" addr = 78:E3:6D:3C:B9:94 ,name=fermenter-1,bogus")

  require.Equal(t, device.DeviceSpec{
    "addr": "78:E3:6D:3C:B9:94",
    "name": "fermenter-1",
  }, spec)
  require.Equal(t, "fermenter-1", spec.Name())

  addr, err := spec.HardwareAddr()
  require.NoError(t, err)
  require.Equal(t, "78:e3:6d:3c:b9:94", addr.String())
}

func TestDeviceSpec_HardwareAddr_Invalid(t *testing.T) {
  for _, s := range []string{
    "name=no-addr",
    "addr=not-a-mac",
    "addr=00:00:5e:00:53:00:00:00",
  } {
    _, err := device.NewDeviceSpec(s).HardwareAddr()
    require.Error(t, err, s)
  }
}
