package collector

import (
  "context"
  "sync"
  "sync/atomic"
  "time"

  "github.com/robertof/go-rapt-exporter/collector/model"
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/rs/zerolog/log"
)

type signal uint8

const (
  signalWakeUp signal = iota
  signalCollectionFinished
)

type Recurring struct {
  // If no call to Latest() has been executed for more than IdleTimeout, scanning is
  // suspended and resumed automatically when Latest() is called again.
  IdleTimeout time.Duration

  // Called with every new snapshot, from the collector goroutine.
  OnUpdate func(model.Snapshot)

  scanner Scanner
  devices []device.Device

  mu sync.Mutex
  snapshot model.Snapshot
  lastRead time.Time

  started bool
  suspended atomic.Bool

  signal chan signal
  wakeUpMu sync.Mutex
}

func NewRecurring(scanner Scanner, devices []device.Device) *Recurring {
  return &Recurring{
    scanner: scanner,
    devices: devices,
    lastRead: time.Now(),
    signal: make(chan signal),
  }
}

// Update replaces the current snapshot with the given readings, timestamped now.
func (s *Recurring) Update(r map[device.Device]device.Reading) {
  if r == nil {
    panic("attempted to set nil reading")
  }

  snapshot := model.Snapshot{Readings: r, Time: time.Now()}

  s.mu.Lock()
  s.snapshot = snapshot
  s.mu.Unlock()

  if s.OnUpdate != nil {
    s.OnUpdate(snapshot)
  }
}

func (s *Recurring) wakeUpIfNeeded() bool {
  if s.suspended.Load() {
    s.signal <- signalWakeUp

    return true
  }

  return false
}

func (s *Recurring) wakeUpAndBlockIfNeeded(ctx context.Context) {
  // wait if another goroutine has already sent the wake up signal.
  s.wakeUpMu.Lock()
  defer s.wakeUpMu.Unlock()

  if !s.wakeUpIfNeeded() {
    return
  }

  select {
  case <-ctx.Done():
  case sig := <-s.signal:
    if sig != signalCollectionFinished {
      panic("unexpected signal")
    }
  }
}

func (s *Recurring) get() (map[device.Device]device.Reading, time.Time) {
  s.mu.Lock()
  defer s.mu.Unlock()

  if s.snapshot.Readings == nil || s.snapshot.Time.IsZero() {
    panic("Latest() on collector.Recurring called when not initialised yet")
  }

  s.lastRead = time.Now()

  // safe to return as we replace the old map with a new one on update.
  return s.snapshot.Readings, s.snapshot.Time
}

// Retrieve the latest collected value. Wakes up the collector if asleep.
// Doesn't wait for a new result if the collector is asleep and is waken up.
func (s *Recurring) Latest() (map[device.Device]device.Reading, time.Time) {
  s.wakeUpIfNeeded()

  return s.get()
}

// Retrieve the latest collected value. Wakes up the collector if asleep and
// waits until it finishes the collection, otherwise, returns the last available
// data without blocking.
func (s *Recurring) WaitLatest(ctx context.Context) (map[device.Device]device.Reading, time.Time) {
  s.wakeUpAndBlockIfNeeded(ctx)

  return s.get()
}

func (s *Recurring) shouldSuspend() (suspend bool, elapsed time.Duration) {
  if s.IdleTimeout <= 0 {
    return false, 0
  }

  s.mu.Lock()
  defer s.mu.Unlock()

  elapsed = time.Since(s.lastRead)

  return elapsed > s.IdleTimeout, elapsed
}

func (s *Recurring) shutdown() {
  log.Info().Msg("Recurring collector is shutting down")

  close(s.signal)
}

// suspend blocks until either a wake up signal arrives (true) or ctx is done (false).
func (s *Recurring) suspend(ctx context.Context, elapsed time.Duration) bool {
  if !s.suspended.CompareAndSwap(false, true) {
    panic("suspending recurring collector twice!?")
  }

  log.Warn().
    Dur("IdleTimeoutSec", s.IdleTimeout).
    Dur("TimeSinceLastReadSec", elapsed).
    Msg("Suspending recurring collector due to inactivity. If you see this message often, " +
        "you probably need to adjust the collection interval with '-interval'.")

  select {
  case <-ctx.Done():
    return false
  case sig := <-s.signal:
    if sig != signalWakeUp {
      panic("unexpected signal")
    }

    if !s.suspended.CompareAndSwap(true, false) {
      panic("collector woke up from sleep but was not suspended!?")
    }

    log.Trace().Msg("Collector woke up from sleep - starting immediate collection")

    return true
  }
}

func (s *Recurring) collect(ctx context.Context, opts CollectionOptions) {
  results, err := CollectReadingsWithOptions(s.scanner, ctx, s.devices, opts)

  if results == nil {
    log.Error().
      Err(err).
      Msg("Collection failed with undefined collection results - this should never happen!")
    return
  }

  update := make(map[device.Device]device.Reading, len(results))

  for dev, res := range results {
    if res.Error != nil {
      log.Warn().
        Stringer("Device", dev).
        Err(res.Error).
        Msg("Collection failed for device")
      continue
    }

    log.Debug().
      Stringer("Device", dev).
      Stringer("Reading", res.Reading).
      Msg("Successfully collected data from device")

    update[dev] = res.Reading
  }

  if len(update) < len(s.devices) {
    log.Warn().
      Err(err).
      Int("Collected", len(update)).
      Int("Devices", len(s.devices)).
      Msg("Collection failed for one or more devices!")
  }

  // keep serving the previous (correctly timestamped) snapshot rather than an empty one.
  if len(update) > 0 {
    s.Update(update)
  }
}

func (s *Recurring) Start(
  ctx context.Context,
  interval time.Duration,
  opts CollectionOptions,
) {
  if s.started {
    panic("attempted to call collector.Recurring.Start() twice")
  }

  s.started = true

  log.Info().
    Dur("Interval", interval).
    Int("MaxRetries", opts.MaxRetries).
    Dur("TimeoutPerAttemptSec", opts.TimeoutPerAttempt).
    Dur("IdleTimeoutSec", s.IdleTimeout).
    Msg("Starting recurring collector")

  for {
    select {
    case <-ctx.Done():
      s.shutdown()
      return
    case <-time.After(interval):
    }

    wokeUp := false

    if suspend, elapsed := s.shouldSuspend(); suspend {
      if wokeUp = s.suspend(ctx, elapsed); !wokeUp {
        s.shutdown()
        return
      }
    } else {
      log.Trace().Dur("Interval", interval).Msg("Recurring collector tick: collecting...")
    }

    s.collect(ctx, opts)

    if wokeUp {
      select {
      case s.signal <- signalCollectionFinished:
      default:
      }
    }
  }
}
