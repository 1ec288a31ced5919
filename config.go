package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robertof/go-rapt-exporter/collector"
	"github.com/robertof/go-rapt-exporter/device"
	"github.com/robertof/go-rapt-exporter/device/rapt"
	"github.com/robertof/go-rapt-exporter/internal/fileconfig"
)

type config struct {
  Debug, Trace bool
  BindAddress string
  EnableMetamonitoring bool
  DiscoverDevices bool
  BluetoothDeviceId int
  BluetoothPowerSaving bool
  MaxRetries int
  InitialCollectionTimeout, CollectionTimeout time.Duration
  CollectionInterval, CollectionIdleTimeout time.Duration
  Backoff time.Duration
  ConfigFile string
  PostgresConnString, PostgresTable string
  Devices []device.Device
}

type boundDeviceList struct {
  device.Factory
  name string
  list *[]device.Device
}

var deviceFactories = map[string]device.Factory {
  "rapt": &rapt.Factory{},
}

func (d *boundDeviceList) String() string {
  return ""
}

func (d *boundDeviceList) Set(v string) error {
  ds := device.NewDeviceSpec(v)

  device, err := d.FromSpec(ds)
  if err != nil {
    return fmt.Errorf("failed to create device: %w", err)
  }

  *d.list = append(*d.list, device)

  return nil
}

// applyFile fills in everything that was not explicitly set on the command line.
func (cfg *config) applyFile(file *fileconfig.Config, setOnCmdline map[string]bool) error {
  if !setOnCmdline["bind"] {
    cfg.BindAddress = file.Bind
  }

  if !setOnCmdline["interval"] && file.Collection.Interval > 0 {
    cfg.CollectionInterval = file.Collection.Interval
  }

  if !setOnCmdline["timeout"] && file.Collection.Timeout > 0 {
    cfg.CollectionTimeout = file.Collection.Timeout
  }

  if !setOnCmdline["max-retries"] && file.Collection.MaxRetries > 0 {
    cfg.MaxRetries = file.Collection.MaxRetries
  }

  if !setOnCmdline["postgres"] && file.Postgres.Enabled() {
    cfg.PostgresConnString = file.Postgres.ConnString
  }

  if !setOnCmdline["postgres-table"] {
    cfg.PostgresTable = file.Postgres.Table
  }

  // devices from the command line replace the ones in the file altogether.
  if setOnCmdline["rapt"] {
    return nil
  }

  for i, fileDevice := range file.Devices {
    dev, err := deviceFactories["rapt"].FromSpec(fileDevice.Spec())
    if err != nil {
      return fmt.Errorf("devices[%d]: failed to create device: %w", i, err)
    }

    cfg.Devices = append(cfg.Devices, dev)
  }

  return nil
}

func ParseArgs() config {
  var cfg config

  flag.StringVar(&cfg.BindAddress,"bind", fileconfig.DefaultBindAddress, "Where the exporter will bind to")
  flag.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", 0, "Bluetooth (HCI) device ID")
  flag.BoolVar(&cfg.BluetoothPowerSaving, "bluetooth-power-saving", false,
    "Scan with a lower duty cycle. Collections take longer")
  flag.BoolVar(&cfg.DiscoverDevices, "discover", false, "Discover available RAPT Pills and quit")
  flag.BoolVar(&cfg.EnableMetamonitoring, "metamonitoring", true, "Enable metamonitoring metrics")
  flag.IntVar(&cfg.MaxRetries, "max-retries", collector.DefaultMaxRetries, "Max number of retries")
  flag.DurationVar(&cfg.InitialCollectionTimeout, "initial-timeout", 60 * time.Second,
    "Timeout for the collection done on start (per retry attempt). RAPT Pills advertise rarely, keep it generous")
  flag.DurationVar(&cfg.CollectionTimeout, "timeout", collector.DefaultTimeoutPerAttempt,
    "Timeout for the periodic collections (per retry attempt)")
  flag.DurationVar(&cfg.CollectionInterval, "interval", 300 * time.Second,
    "How frequently data collection happens")
  flag.DurationVar(&cfg.CollectionIdleTimeout, "idle-timeout", -1,
    "Timeout after which the collector is shut down if no data is read. Defaults to 3 * CollectionInterval")
  flag.DurationVar(&cfg.Backoff, "backoff", collector.DefaultBackoffFactor,
    "Exponential backoff factor for retries")
  flag.StringVar(&cfg.ConfigFile, "config", "", "Optional YAML configuration file. Command line flags take precedence")
  flag.StringVar(&cfg.PostgresConnString, "postgres", "",
    "Postgres connection string. When set, every collection is also stored in the database")
  flag.StringVar(&cfg.PostgresTable, "postgres-table", fileconfig.DefaultPostgresTable,
    "Postgres table collections are stored into. Created if missing")
  flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  flag.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  for deviceName, deviceFactory := range deviceFactories {
    boundList := boundDeviceList{
      name:    deviceName,
      Factory: deviceFactory,
      list:    &cfg.Devices,
    }

    help := "Device spec for this device in the form of `key=value,key=value`."

    if docs, ok := deviceFactory.(device.FactoryDocs); ok {
      help += "\n" + docs.Help()
    }

    flag.Var(&boundList, deviceName, help)
  }

  flag.Parse()

  if cfg.ConfigFile != "" {
    setOnCmdline := make(map[string]bool)
    flag.Visit(func(f *flag.Flag) { setOnCmdline[f.Name] = true })

    file, err := fileconfig.Load(cfg.ConfigFile)

    if err == nil {
      err = cfg.applyFile(file, setOnCmdline)
    }

    if err != nil {
      fmt.Fprintf(os.Stderr, "Error: invalid config file %q: %v\n", cfg.ConfigFile, err)
      os.Exit(1)
    }
  }

  if cfg.CollectionIdleTimeout < 0 {
    cfg.CollectionIdleTimeout = cfg.CollectionInterval * 3
  }

  if !cfg.DiscoverDevices && len(cfg.Devices) == 0 {
    fmt.Fprintln(os.Stderr, "Error: at least one device is required!")
    flag.Usage()
    os.Exit(1)
  }

  return cfg
}
