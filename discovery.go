package main

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"

	"github.com/robertof/go-rapt-exporter/ble"
	"github.com/robertof/go-rapt-exporter/device/rapt"
	"github.com/robertof/go-rapt-exporter/utils"
)

const discoveryDuration = 5 * time.Second

type discoveredDevice struct {
  identity rapt.Identity
  // classification name -> number of payloads seen
  payloads map[string]int
  firmware string
  lastMetrics *rapt.MetricsFrame
  rssi int
}

// discoveries accumulates every RAPT Pill seen during a discovery scan.
type discoveries map[string]*discoveredDevice

func (d discoveries) add(addr net.HardwareAddr, update rapt.Update) {
  if !update.Recognized() {
    return
  }

  info, ok := d[addr.String()]

  if !ok {
    info = &discoveredDevice{
      identity: *update.Identity,
      payloads: make(map[string]int),
    }

    d[addr.String()] = info
  }

  info.rssi = update.SignalStrength

  for _, route := range update.Routes {
    info.payloads[route.Classification.String()] += 1
  }

  if update.Version != nil {
    info.firmware = update.Version.Version
  }

  if update.Metrics != nil {
    info.lastMetrics = update.Metrics
  }
}

func doDeviceDiscovery(cfg config) {
  log.Info().
    Dur("DurationSec", discoveryDuration).
    Msg("Starting in device discovery mode - looking for RAPT Pills...")

  handle, err := ble.Init(cfg.BluetoothDeviceId, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  defer handle.Stop()

  ctx := ble.WrapContextWithSigHandler(
    context.WithTimeout(
      context.Background(),
      discoveryDuration,
    ),
  )

  found := make(discoveries)
  others := make(map[string]bool)

  err = handle.ScanAll(ctx, func(a ble.Advertisement) {
    hwAddr, err := net.ParseMAC(a.Addr().String())

    if err != nil || len(a.ManufacturerData()) == 0 {
      others[a.Addr().String()] = true
      return
    }

    adv := rapt.FromManufacturerData(a.ManufacturerData())
    update := rapt.Decode(adv, hwAddr, a.RSSI())

    if !update.Recognized() {
      others[a.Addr().String()] = true
      return
    }

    found.add(hwAddr, update)

    log.Debug().
      Str("Addr", a.Addr().String()).
      Int("RSSI", a.RSSI()).
      Dict("ManufacturerData", utils.ToZeroLogDict(adv)).
      Stringer("Update", update).
      Msg("Received RAPT Pill advertisement")
  })

  if err != nil && !utils.IsScanStop(err) {
    log.Fatal().Err(err).Msg("Failed to initiate scan")
  }

  log.Info().
    Int("Found", len(found)).
    Int("OtherDevices", len(others)).
    Msg("Finished device discovery")

  log.Trace().Strs("OtherDevices", maps.Keys(others)).Msg("Ignored non-RAPT devices")

  for _, addr := range utils.SortedKeys(found) {
    info := found[addr]
    event := log.Info().
      Str("Addr", addr).
      Str("Name", info.identity.Name).
      Int("RSSI", info.rssi).
      Interface("Payloads", info.payloads)

    if info.firmware != "" {
      event = event.Str("Firmware", info.firmware)
    }

    if info.lastMetrics != nil {
      event = event.Stringer("Metrics", info.lastMetrics)
    }

    event.Msgf("Found device - monitor it with '-rapt addr=%s'", addr)
  }
}
