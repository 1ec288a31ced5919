package collector

import (
  "context"
  "errors"
  "net"
  "strings"
  "sync/atomic"

  "github.com/robertof/go-rapt-exporter/ble"
  "github.com/robertof/go-rapt-exporter/collector/model"
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/rs/zerolog/log"
)

func collectViaScan(
  ctx context.Context,
  scanner Scanner,
  devices []deviceWithBackend[device.PassiveBackend],
  ch chan model.DeviceResult,
) error {
  if len(devices) == 0 {
    return nil
  }

  var numLeft atomic.Int32
  numLeft.Store(int32(len(devices)))

  addresses := make([]net.HardwareAddr, 0, len(devices))
  deviceMap := make(map[string]deviceWithBackend[device.PassiveBackend], len(devices))

  for _, dev := range devices {
    addresses = append(addresses, dev.Addr())
    deviceMap[strings.ToLower(dev.Addr().String())] = dev
  }

  err := scanner.ScanAddresses(ctx, addresses, func(a ble.Advertisement) bool {
    dev, ok := deviceMap[strings.ToLower(a.Addr().String())]

    if !ok {
      log.Warn().
        Str("Address", a.Addr().String()).
        Str("LocalName", a.LocalName()).
        Hex("ManufacturerData", a.ManufacturerData()).
        Msg("Received advertisement from unknown device!")

      return false
    }

    reading, err := dev.backend.ParseAdvertisement(a)

    log.Trace().
      Err(err).
      Stringer("Reading", reading).
      Stringer("Device", dev.Device).
      Hex("ManufacturerData", a.ManufacturerData()).
      Msg("collectViaScan: parsed device advertisement")

    // version and hardware revision advertisements carry no reading. keep scanning without
    // reporting them as failures.
    if errors.Is(err, device.ErrNoReading) {
      return false
    }

    result := model.DeviceResult{
      Device: dev.Device,
      Result: model.Result{
        Reading: reading,
        Error: err,
      },
    }

    select {
    case <-ctx.Done():
      return true // context is canceled, let's get out of the way
    case ch <- result:
    }

    if err != nil {
      return false
    }

    numLeft.Add(-1)

    return true
  })

  // swallow deadline exceeded errors if we got results for all devices
  if errors.Is(err, context.DeadlineExceeded) && numLeft.Load() == 0 {
    err = nil
  }

  return err
}
