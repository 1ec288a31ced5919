package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertof/go-rapt-exporter/ble"
	"github.com/robertof/go-rapt-exporter/collector"
	"github.com/robertof/go-rapt-exporter/collector/model"
	"github.com/robertof/go-rapt-exporter/device"
	"github.com/robertof/go-rapt-exporter/device/rapt"
	"github.com/robertof/go-rapt-exporter/metrics"
	"github.com/robertof/go-rapt-exporter/sink"
	"github.com/robertof/go-rapt-exporter/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sinkWriteTimeout = 10 * time.Second

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
      zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if cfg.Debug || os.Getenv("DEBUG") != "" {
      zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
      zerolog.SetGlobalLevel(zerolog.InfoLevel)
  }

  if cfg.DiscoverDevices {
    doDeviceDiscovery(cfg)
    return
  }

  log.Info().
    Str("BindAddr", cfg.BindAddress).
    Array("Devices", utils.ToZeroLogArray(cfg.Devices)).
    Int("BluetoothDeviceID", cfg.BluetoothDeviceId).
    Bool("Postgres", cfg.PostgresConnString != "").
    Msg("Starting with the specified configuration")

  registry := prometheus.NewRegistry()

  if cfg.EnableMetamonitoring {
    registry.MustRegister(
      collectors.NewGoCollector(),
      collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )

    ble.RegisterMetrics(registry)
    rapt.RegisterMetrics(registry)
  }

  bleHandle := initBle(cfg)

  coll := collector.NewRecurring(bleHandle, cfg.Devices)
  coll.IdleTimeout = cfg.CollectionIdleTimeout

  if cfg.PostgresConnString != "" {
    coll.OnUpdate = initPostgresSink(cfg)
  }

  coll.Update(collectInitialReadings(cfg, bleHandle))

  metrics.RegisterCollector(
    func() (map[device.Device]device.Reading, time.Time) {
      // no way to get the HTTP request context from the collector unfortunately :(
      return coll.WaitLatest(context.Background())
    },
    registry,
  )

  go coll.Start(
    context.Background(),
    cfg.CollectionInterval,
    collector.CollectionOptions{
      TimeoutPerAttempt: cfg.CollectionTimeout,
      MaxRetries: cfg.MaxRetries,
      BackoffFactor: cfg.Backoff,
    },
  )

  log.Info().
      Str("ListenAddress", cfg.BindAddress).
      Msg("Starting Prometheus server")

  http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

  if err := http.ListenAndServe(cfg.BindAddress, nil); err != nil {
      log.Fatal().Err(err).Msg("Unable to bind on requested address")
  }
}

func initBle(cfg config) *ble.Handle {
  var bleFlags ble.Flags = ble.FlagEnableDeviceAllowList

  if cfg.BluetoothPowerSaving {
    bleFlags |= ble.FlagPowerSaving
  }

  deviceAddresses := make([]net.HardwareAddr, len(cfg.Devices))

  for i, dev := range cfg.Devices {
    deviceAddresses[i] = dev.Addr()

    if dev.Flags() & device.FlagRequiresBleActiveScan == device.FlagRequiresBleActiveScan {
      bleFlags |= ble.FlagScanTypeActive
    }
  }

  bleHandle, err := ble.Init(cfg.BluetoothDeviceId, bleFlags)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  err = bleHandle.SetAllowListedAddresses(deviceAddresses)

  if err != nil {
    log.Error().Err(err).Msg("Failed to set device allow list")
  }

  return bleHandle
}

func initPostgresSink(cfg config) func(model.Snapshot) {
  db, err := sql.Open("postgres", cfg.PostgresConnString)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to open Postgres connection")
  }

  pg := sink.NewPostgresSink(db, cfg.PostgresTable)

  ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
  defer cancel()

  if err := pg.EnsureTable(ctx); err != nil {
    log.Fatal().Err(err).Str("Table", cfg.PostgresTable).Msg("Failed to prepare Postgres table")
  }

  log.Info().
    Str("Sink", pg.Name()).
    Str("Table", cfg.PostgresTable).
    Msg("Storing every collection in Postgres")

  return func(s model.Snapshot) {
    ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
    defer cancel()

    if err := pg.Write(ctx, s); err != nil {
      // a failed write loses this snapshot only, the next collection is tried anyway.
      log.Error().Err(err).Str("Sink", pg.Name()).Msg("Failed to store collection")
      return
    }

    log.Debug().
      Str("Sink", pg.Name()).
      Int("Readings", len(s.Readings)).
      Time("Time", s.Time).
      Msg("Stored collection")
  }
}

func collectInitialReadings(cfg config, bleHandle *ble.Handle) (res map[device.Device]device.Reading) {
  log.Info().
    Dur("TimeoutSec", cfg.InitialCollectionTimeout).
    Msg("Running initial collection for the provided devices")

  readings, err := collector.CollectReadingsWithOptions(
    bleHandle,
    context.Background(),
    cfg.Devices,
    collector.CollectionOptions{
      TimeoutPerAttempt: cfg.InitialCollectionTimeout,
      MaxRetries: cfg.MaxRetries,
      BackoffFactor: cfg.Backoff,
    },
  )

  if err != nil {
    log.Fatal().
      Err(err).
      Str("Readings", fmt.Sprintf("%v", readings)).
      Msg("Failed to collect initial readings")
  }

  hasError := false
  res = make(map[device.Device]device.Reading)

  for device, result := range readings {
    if result.Error != nil {
      hasError = true

      log.Error().
        Stringer("Device", device).
        Err(result.Error).
        Msg("Failed to collect reading for device")
    } else {
      log.Info().
        Stringer("Device", device).
        Stringer("Reading", result.Reading).
        Msg("Successfully collected reading for device")

      res[device] = result.Reading
    }
  }

  if hasError {
    log.Fatal().Msg("Reading for at least one device failed, refusing to start")
  }

  return res
}
