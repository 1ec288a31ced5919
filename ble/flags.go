package ble

import (
  "strconv"
  "strings"

  "github.com/go-ble/ble/linux/hci/cmd"
)

type Flags int

const (
  // Run active scans rather than passive scans (requiring explicit responses from peripherals).
  FlagScanTypeActive Flags = 1 << iota
  // Enable an allowlist for scans. Must be configured with `SetAllowListedAddresses()`.
  FlagEnableDeviceAllowList
  // Listen for 25% of the time instead of continuously. Advertisements are missed more
  // often, so collections take longer.
  FlagPowerSaving
)

var flagNames = []struct {
  flag Flags
  name string
}{
  {FlagScanTypeActive, "active scan"},
  {FlagEnableDeviceAllowList, "device allow-list"},
  {FlagPowerSaving, "power saving"},
}

func (f Flags) has(flag Flags) bool {
  return f & flag == flag
}

func (f Flags) String() string {
  var names []string

  for _, entry := range flagNames {
    if f.has(entry.flag) {
      names = append(names, entry.name)
    }
  }

  if len(names) == 0 {
    return "none"
  }

  return strings.Join(names, ", ")
}

// Both in units of 0.625ms, valid range 0x0004 - 0x4000.
const (
  scanWindow uint16 = 0x0004
  powerSavingScanInterval uint16 = 0x0010
)

func (f Flags) scanParameters() cmd.LESetScanParameters {
  params := cmd.LESetScanParameters{
    LEScanType:           uint8(scanTypePassive),
    LEScanInterval:       scanWindow,
    LEScanWindow:         scanWindow,
    OwnAddressType:       0x00, // 0x00: public, 0x01: random
    ScanningFilterPolicy: uint8(filterPolicyAcceptAll),
  }

  if f.has(FlagScanTypeActive) {
    params.LEScanType = uint8(scanTypeActive)
  }

  if f.has(FlagEnableDeviceAllowList) {
    params.ScanningFilterPolicy = uint8(filterPolicyAllowListedOnly)
  }

  if f.has(FlagPowerSaving) {
    params.LEScanInterval = powerSavingScanInterval
  }

  return params
}

type scanType uint8

const (
  scanTypePassive scanType = iota
  scanTypeActive
)

func (s scanType) String() string {
  switch s {
  case scanTypeActive:
    return "Active"
  case scanTypePassive:
    return "Passive"
  default:
    panic("unknown scanType value: " + strconv.Itoa(int(s)))
  }
}

type filterPolicy uint8

const (
  filterPolicyAcceptAll filterPolicy = iota
  filterPolicyAllowListedOnly
)

func (f filterPolicy) String() string {
  switch f {
  case filterPolicyAcceptAll:
    return "Accept All"
  case filterPolicyAllowListedOnly:
    return "Allow-listed Only"
  default:
    panic("unknown filterPolicy value: " + strconv.Itoa(int(f)))
  }
}
