package rapt

import (
  "fmt"
  "net"

  "github.com/robertof/go-rapt-exporter/device"
)

type Device struct {
  name string
  addr net.HardwareAddr
  flags device.Flags
  backend *backendPassive
}

func (d *Device) Name() string {
  return d.name
}

func (d *Device) Addr() net.HardwareAddr {
  return d.addr
}

func (d *Device) Flags() device.Flags {
  return d.flags
}

func (d *Device) Backend() device.Backend {
  return d.backend
}

func (d *Device) String() string {
  return fmt.Sprintf("rapt[name=%q, addr=%v]", d.name, d.addr.String())
}
