package device

import (
  "errors"
  "net"
)

var (
  ErrInvalidData = errors.New("invalid data")
  ErrCorruptedData = errors.New("corrupted data")
  // The advertisement was understood but carries no measurements (e.g. a version beacon).
  ErrNoReading = errors.New("no reading in advertisement")
)

type Flags uint8

const (
  FlagRequiresBleActiveScan Flags = 1 << iota
)

type Device interface {
  Name() string
  Addr() net.HardwareAddr
  Flags() Flags
  Backend() Backend
  String() string
}
