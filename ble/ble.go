package ble

import (
  "fmt"
  "net"

  "github.com/go-ble/ble"
  "github.com/go-ble/ble/linux"
  "github.com/go-ble/ble/linux/hci/cmd"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-rapt-exporter/utils"
  "github.com/rs/zerolog/log"
)

type Advertisement = ble.Advertisement
type Addr = ble.Addr

type Handle struct {
  dev *linux.Device
}

func RegisterMetrics(reg prometheus.Registerer) {
  reg.MustRegister(
    advertisementsCounter,
    droppedAdvertisementsCounter,
  )
}

func Init(deviceId int, flags Flags) (*Handle, error) {
  params := flags.scanParameters()

  log.Debug().
    Stringer("ScanType", scanType(params.LEScanType)).
    Stringer("FilterPolicy", filterPolicy(params.ScanningFilterPolicy)).
    Uint16("ScanInterval", params.LEScanInterval).
    Stringer("Flags", flags).
    Int("DeviceID", deviceId).
    Msg("Initializing Bluetooth device")

  dev, err := linux.NewDevice(
    ble.OptDeviceID(deviceId),
    ble.OptScanParams(params),
  )

  if err != nil {
    return nil, fmt.Errorf("failed to init bluetooth device: %w", err)
  }

  ble.SetDefaultDevice(dev)

  return &Handle{dev: dev}, nil
}

// allowListEntry converts a MAC address to the little endian representation HCI expects.
func allowListEntry(addr net.HardwareAddr) ([6]byte, error) {
  var entry [6]byte

  if len(addr) != 6 {
    return entry, fmt.Errorf("%q is not a 48-bit address", addr.String())
  }

  for i := range entry {
    entry[i] = addr[5 - i]
  }

  return entry, nil
}

func (h *Handle) SetAllowListedAddresses(a []net.HardwareAddr) error {
  log.Debug().
    Array("DeviceAddresses", utils.ToZeroLogArray(a)).
    Msg("Allow-listing the requested Bluetooth devices")

  // clear the white list to make sure we're starting from an empty slate.
  var res cmd.LEClearWhiteListRP

  err := h.dev.HCI.Send(&cmd.LEClearWhiteList{}, &res)

  if err != nil {
    return fmt.Errorf("failed to clear allow-list: %w", err)
  }

  if res.Status != 0 {
    return fmt.Errorf("failed to clear allow-list: got status: %v", res.Status)
  }

  for _, addr := range a {
    entry, err := allowListEntry(addr)

    if err != nil {
      return fmt.Errorf("failed to allow-list device: %w", err)
    }

    var res cmd.LEAddDeviceToWhiteListRP

    err = h.dev.HCI.Send(&cmd.LEAddDeviceToWhiteList{
      AddressType: 0x00, // public
      Address:     entry,
    }, &res)

    if err != nil {
      return fmt.Errorf("failed to allow-list device %q: %w", addr.String(), err)
    }

    if res.Status != 0 {
      return fmt.Errorf("failed to allow-list device %q: got status: %v", addr.String(), res.Status)
    }
  }

  return nil
}

func (h *Handle) Stop() error {
  return h.dev.Stop()
}
