package model

import (
  "fmt"
  "time"

  "github.com/robertof/go-rapt-exporter/device"
)

type Result struct {
  Reading device.Reading
  Error error
}

func (c Result) String() string {
  if c.Error != nil {
    return fmt.Sprintf("result:error(%v)", c.Error)
  }

  return fmt.Sprintf("result:success(%v)", c.Reading)
}

type DeviceResult struct {
  device.Device
  Result
}

// Snapshot is the latest reading of every device, as of Time.
type Snapshot struct {
  Readings map[device.Device]device.Reading
  Time time.Time
}
