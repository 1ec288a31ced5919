package fileconfig

import (
  "os"
  "path/filepath"
  "testing"
  "time"

  "github.com/robertof/go-rapt-exporter/device"
  "github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
  dir := t.TempDir()
  path := filepath.Join(dir, "config.yaml")

  require.NoError(t, os.WriteFile(path, []byte(`
devices:
  - addr: 78:e3:6d:3c:b9:94
    name: fermenter
  - addr: 00:11:22:33:44:55
    active: true
collection:
  interval: 2m
postgres:
  conn_string: postgres://localhost/brewing?sslmode=disable
`), 0o600))

  cfg, err := Load(path)
  require.NoError(t, err)

  require.Equal(t, DefaultBindAddress, cfg.Bind)
  require.Equal(t, DefaultPostgresTable, cfg.Postgres.Table)
  require.True(t, cfg.Postgres.Enabled())
  require.Equal(t, 2 * time.Minute, cfg.Collection.Interval)
  require.Len(t, cfg.Devices, 2)

  require.Equal(t, device.DeviceSpec{"addr": "78:e3:6d:3c:b9:94", "name": "fermenter"}, cfg.Devices[0].Spec())
  require.Equal(t, device.DeviceSpec{"addr": "00:11:22:33:44:55", "active": "true"}, cfg.Devices[1].Spec())
}

func TestLoadMissingFile(t *testing.T) {
  _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
  require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsInvalidConfigs(t *testing.T) {
  tests := map[string]string{
    "bad yaml": "devices: [",
    "missing addr": "devices:\n  - name: fermenter\n",
    "bad addr": "devices:\n  - addr: not-a-mac\n",
    "long addr": "devices:\n  - addr: 00:11:22:33:44:55:66:77\n",
    "duplicate addr": "devices:\n  - addr: 00:11:22:33:44:55\n  - addr: 00:11:22:33:44:55\n",
    "bad bind": "bind: localhost\n",
    "negative interval": "collection:\n  interval: -1s\n",
    "negative retries": "collection:\n  max_retries: -1\n",
    "bad table": "postgres:\n  table: \"readings; drop table x\"\n",
  }

  for name, raw := range tests {
    t.Run(name, func(t *testing.T) {
      _, err := Parse([]byte(raw))
      require.Error(t, err)
    })
  }
}

func TestValidIdentifier(t *testing.T) {
  for _, ok := range []string{"rapt_readings", "brewing.rapt", "T1"} {
    require.True(t, validIdentifier(ok), ok)
  }

  for _, bad := range []string{"", "1abc", "a.b.c", ".a", "a.", "a.1b", "a-b", "a b"} {
    require.False(t, validIdentifier(bad), bad)
  }
}
