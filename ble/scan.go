package ble

import (
  "context"
  "errors"
  "fmt"
  "net"
  "strings"

  "github.com/go-ble/ble"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/rs/zerolog/log"
)

const perAddressQueueLen = 10

var (
  advertisementsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "rapt_exporter_ble_advertisements_total",
    Help: "Advertisements received from allow-listed devices.",
  })
  droppedAdvertisementsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "rapt_exporter_ble_advertisements_dropped_total",
    Help: "Advertisements dropped because the previous ones were still being processed.",
  })
)

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
  return ble.WithSigHandler(ctx, cancel)
}

// Perform an active or passive scan and return every advertisement found.
func (h *Handle) ScanAll(ctx context.Context, onDevice func(Advertisement)) error {
  err := h.dev.Scan(ctx, true, onDevice)

  if err != nil {
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}

// Perform an active or passive scan for the specified addresses and pass it to
// an handler that determines whether to accept it - ending scanning for that address -
// or rejecting it.
//
// Duplicates are not filtered: devices may alternate between different advertisements
// and a controller filtering on the address alone would only ever report the first one.
func (h *Handle) ScanAddresses(
  parentCtx context.Context,
  addresses []net.HardwareAddr,
  onAdvertisement func(Advertisement) bool,
) error {
  queues := make(map[string]chan Advertisement, len(addresses))

  ctx, cancel := context.WithCancel(parentCtx)
  defer cancel()

  done := make(chan string)

  for _, addr := range addresses {
    addrStr := strings.ToLower(addr.String())
    ch := make(chan Advertisement, perAddressQueueLen)
    queues[addrStr] = ch

    // one goroutine per device, so that its advertisements are handled in order.
    go func() {
      for {
        select {
        case next := <-ch:
          if !onAdvertisement(next) {
            continue
          }

          select {
          case done <- addrStr:
          case <-ctx.Done():
          }

          return
        case <-ctx.Done():
          return
        }
      }
    }()
  }

  callback := func(a Advertisement) {
    addr := strings.ToLower(a.Addr().String())

    // the BLE lib could send an advertisement even after `Scan()` returns. do not waste
    // time enqueueing data if we're done.
    if ctx.Err() != nil {
      return
    }

    ch, ok := queues[addr]

    if !ok {
      return
    }

    advertisementsCounter.Inc()

    select {
    case ch <- a:
      log.Trace().
        Str("Addr", addr).
        Hex("ManufacturerData", a.ManufacturerData()).
        Int("RSSI", a.RSSI()).
        Msg("ble: received advertisement, enqueueing")
    default:
      droppedAdvertisementsCounter.Inc()
      log.Trace().Str("Addr", addr).Msg("ble: advertisement queue full, dropping")
    }
  }

  // cancel the scan once every address has been accepted.
  go func() {
    for left := len(addresses); left > 0; left -= 1 {
      select {
      case <-done:
      case <-ctx.Done():
        return
      }
    }

    cancel()
  }()

  err := h.dev.Scan(ctx, true, callback)

  // swallow context.Canceled errors which are caused by our explicit cancellations.
  if errors.Is(err, context.Canceled) && parentCtx.Err() == nil {
    err = nil
  }

  return err
}
