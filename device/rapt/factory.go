package rapt

import (
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/rs/zerolog/log"
)

type Factory struct{}

func (f *Factory) FromSpec(spec device.DeviceSpec) (device.Device, error) {
  hwAddr, err := spec.HardwareAddr()

  if err != nil {
    return nil, err
  }

  d := Device{
    name: spec.Name(),
    addr: hwAddr,
  }

  if d.name == "" {
    d.name = NewIdentity(hwAddr).Name
  }

  scanType := device.PassiveBackendScanTypePassive

  if active := spec["active"]; active == "yes" || active == "true" {
    d.flags |= device.FlagRequiresBleActiveScan
    scanType = device.PassiveBackendScanTypeActive
  }

  d.backend = newBackendPassive(scanType)

  log.Debug().
    Stringer("Device", &d).
    Bool("ActiveScan", scanType == device.PassiveBackendScanTypeActive).
    Msg("rapt: created device")

  return &d, nil
}

func (f *Factory) Help() string {
  return `Supported parameters:
addr (string, required): MAC address of this RAPT Pill
name (string): Name of this RAPT Pill. Defaults to "RAPT Pill XXXX" after the last two bytes of addr
active (bool): Use active scans. Only needed if the version advertisement is never received.`
}
