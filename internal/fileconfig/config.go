// Package fileconfig loads the optional YAML configuration file. Everything it holds can
// also be given on the command line.
package fileconfig

import (
  "fmt"
  "net"
  "os"
  "strconv"
  "time"

  "github.com/pkg/errors"
  "github.com/robertof/go-rapt-exporter/device"
  "gopkg.in/yaml.v3"
)

const (
  DefaultBindAddress = "localhost:9102"
  DefaultPostgresTable = "rapt_readings"
)

type Config struct {
  Bind string `yaml:"bind"`
  Devices []Device `yaml:"devices"`
  Collection Collection `yaml:"collection"`
  Postgres Postgres `yaml:"postgres"`
}

type Device struct {
  Addr string `yaml:"addr"`
  Name string `yaml:"name"`
  Active bool `yaml:"active"`
}

// Spec returns the same DeviceSpec the `-rapt` flag would produce.
func (d Device) Spec() device.DeviceSpec {
  spec := device.DeviceSpec{device.DeviceSpecFieldAddress: d.Addr}

  if d.Name != "" {
    spec[device.DeviceSpecFieldName] = d.Name
  }

  if d.Active {
    spec["active"] = strconv.FormatBool(d.Active)
  }

  return spec
}

// Zero values mean "use the command line default".
type Collection struct {
  Interval time.Duration `yaml:"interval"`
  Timeout time.Duration `yaml:"timeout"`
  MaxRetries int `yaml:"max_retries"`
}

type Postgres struct {
  ConnString string `yaml:"conn_string"`
  Table string `yaml:"table"`
}

func (p Postgres) Enabled() bool {
  return p.ConnString != ""
}

func Load(path string) (*Config, error) {
  raw, err := os.ReadFile(path)
  if err != nil {
    return nil, errors.Wrap(err, "failed to read config file")
  }

  return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
  var cfg Config
  if err := yaml.Unmarshal(raw, &cfg); err != nil {
    return nil, errors.Wrap(err, "failed to parse config file")
  }

  cfg.applyDefaults()
  if err := cfg.validate(); err != nil {
    return nil, err
  }

  return &cfg, nil
}

func (c *Config) applyDefaults() {
  if c.Bind == "" {
    c.Bind = DefaultBindAddress
  }
  if c.Postgres.Table == "" {
    c.Postgres.Table = DefaultPostgresTable
  }
}

func (c *Config) validate() error {
  seen := make(map[string]bool, len(c.Devices))

  for i, dev := range c.Devices {
    hwAddr, err := dev.Spec().HardwareAddr()
    if err != nil {
      return fmt.Errorf("devices[%d]: %w", i, err)
    }

    key := hwAddr.String()
    if seen[key] {
      return fmt.Errorf("devices[%d]: duplicate addr %s", i, key)
    }
    seen[key] = true
  }

  if _, _, err := net.SplitHostPort(c.Bind); err != nil {
    return fmt.Errorf("bind: %w", err)
  }
  if c.Collection.Interval < 0 || c.Collection.Timeout < 0 {
    return fmt.Errorf("collection: durations must not be negative")
  }
  if c.Collection.MaxRetries < 0 {
    return fmt.Errorf("collection.max_retries must not be negative")
  }
  if !validIdentifier(c.Postgres.Table) {
    return fmt.Errorf("postgres.table %q is not a valid table name", c.Postgres.Table)
  }

  return nil
}

// validIdentifier accepts unquoted SQL identifiers, optionally schema-qualified once.
func validIdentifier(s string) bool {
  if s == "" {
    return false
  }

  dots := 0

  for i, r := range s {
    switch {
    case r == '.':
      dots += 1
      if dots > 1 || i == 0 || i == len(s) - 1 {
        return false
      }
    case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
    case r >= '0' && r <= '9':
      if i == 0 || s[i - 1] == '.' {
        return false
      }
    default:
      return false
    }
  }

  return true
}
