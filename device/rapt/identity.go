package rapt

import (
  "fmt"
  "net"
)

const (
  Manufacturer = "RAPT"
  Model = "RAPT Pill hydrometer"

  namePrefix = "RAPT Pill"
)

type Identity struct {
  Manufacturer string
  Model string
  Name string
  Title string
}

// NewIdentity names a device after the last two octets of its address, e.g.
// "RAPT Pill 4455" for 00:11:22:33:44:55.
func NewIdentity(addr net.HardwareAddr) Identity {
  name := namePrefix

  if n := len(addr); n >= 2 {
    name = fmt.Sprintf("%s %02X%02X", namePrefix, addr[n-2], addr[n-1])
  }

  return Identity{
    Manufacturer: Manufacturer,
    Model: Model,
    Name: name,
    Title: name,
  }
}
