package collector

import (
  "context"
  "fmt"
  "net"
  "time"

  "github.com/robertof/go-rapt-exporter/ble"
  "github.com/robertof/go-rapt-exporter/collector/model"
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/robertof/go-rapt-exporter/utils"
  "github.com/rs/zerolog/log"
  "golang.org/x/sync/errgroup"
)

const (
  DefaultMaxRetries = 2
  DefaultTimeoutPerAttempt = 30 * time.Second
  DefaultBackoffFactor = 500 * time.Millisecond
)

// Scanner is implemented by *ble.Handle.
type Scanner interface {
  ScanAddresses(
    ctx context.Context,
    addresses []net.HardwareAddr,
    onAdvertisement func(ble.Advertisement) bool,
  ) error
}

type CollectionOptions struct {
  MaxRetries int
  TimeoutPerAttempt time.Duration
  BackoffFactor time.Duration

  attempt int
}

func (o CollectionOptions) backoff() time.Duration {
  backoff := o.BackoffFactor << int64(o.attempt)

  if backoff <= 0 {
    return DefaultBackoffFactor
  }

  return backoff
}

type deviceWithBackend[Backend any] struct {
  device.Device
  backend Backend
}

func selectPassiveDevices(devices []device.Device) (passive []deviceWithBackend[device.PassiveBackend]) {
  for _, dev := range devices {
    backend, ok := dev.Backend().(device.PassiveBackend)

    if !ok {
      panic(fmt.Sprintf("device %q has invalid backend %T, must be a PassiveBackend", dev, dev.Backend()))
    }

    passive = append(passive, deviceWithBackend[device.PassiveBackend]{
      Device: dev,
      backend: backend,
    })
  }

  return passive
}

func CollectReadings(
  scanner Scanner,
  ctx context.Context,
  devices []device.Device,
) (out map[device.Device]model.Result, err error) {
  return CollectReadingsWithOptions(
    scanner,
    ctx,
    devices,
    CollectionOptions{
      MaxRetries: DefaultMaxRetries,
      TimeoutPerAttempt: DefaultTimeoutPerAttempt,
    },
  )
}

// Collect readings from the specified devices and don't stop until either all advertisements
// have been parsed successfully or the context timeout (if any) expires. Devices without a
// successful reading are retried up to MaxRetries times.
func CollectReadingsWithOptions(
  scanner Scanner,
  parentCtx context.Context,
  devices []device.Device,
  options CollectionOptions,
) (out map[device.Device]model.Result, err error) {
  out = make(map[device.Device]model.Result, len(devices))

  log.Debug().
    Array("Devices", utils.ToZeroLogArray(devices)).
    Int("Attempt", options.attempt).
    Msg("Collecting readings from devices")

  var ctx context.Context
  var cancel func()

  if options.TimeoutPerAttempt > 0 {
    ctx, cancel = context.WithTimeout(parentCtx, options.TimeoutPerAttempt)
  } else {
    ctx, cancel = context.WithCancel(parentCtx)
  }

  defer cancel()

  var eg errgroup.Group
  resultCh := make(chan model.DeviceResult)

  eg.Go(func() error {
    return collectViaScan(ctx, scanner, selectPassiveDevices(devices), resultCh)
  })

  go func() {
    err = eg.Wait()
    close(resultCh)
  }()

  for v := range resultCh {
    log.Trace().
      Stringer("Device", v.Device).
      Stringer("Result", v.Result).
      Msg("Received result for device")

    // a failed parse must not shadow an earlier successful one.
    if prev, ok := out[v.Device]; ok && prev.Error == nil && v.Error != nil {
      continue
    }

    out[v.Device] = v.Result
  }

  if options.MaxRetries <= 0 {
    return out, err
  }

  var failedDevices []device.Device

  for _, dev := range devices {
    if result, ok := out[dev]; ok && result.Error != nil {
      failedDevices = append(failedDevices, dev)

      log.Debug().
        Stringer("Device", dev).
        Int("RetriesLeft", options.MaxRetries).
        Err(result.Error).
        Msg("Collection failed for device - will retry")
    } else if !ok {
      failedDevices = append(failedDevices, dev)

      log.Debug().
        Stringer("Device", dev).
        Int("RetriesLeft", options.MaxRetries).
        Err(err).
        Msg("No data received for device (wrong MAC? out of range?) - will retry")
    }
  }

  if len(failedDevices) == 0 {
    return out, err
  }

  if options.BackoffFactor > 0 {
    backoff := options.backoff()

    log.Trace().
      Dur("Backoff", backoff).
      Msg("Backing off before attempting retry")

    select {
    case <-parentCtx.Done():
      log.Trace().Err(parentCtx.Err()).Msg("Retry aborted by context cancel")
      return out, parentCtx.Err()
    case <-time.After(backoff):
    }
  }

  options.MaxRetries -= 1
  options.attempt += 1

  retryOutput, err := CollectReadingsWithOptions(scanner, parentCtx, failedDevices, options)

  for failedDevice, result := range retryOutput {
    out[failedDevice] = result
  }

  return out, err
}
