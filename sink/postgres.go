package sink

import (
  "context"
  "database/sql"
  "fmt"
  "strings"

  "github.com/pkg/errors"
  "github.com/robertof/go-rapt-exporter/collector/model"
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/robertof/go-rapt-exporter/utils"
)

const columns = "(addr, name, ts, temperature, specific_gravity, specific_gravity_trend, " +
  "battery, rssi, protocol, firmware)"

const numColumns = 10

// PostgresSink stores every collected snapshot, one row per device. Rows are keyed by
// (addr, ts) so a snapshot written twice is stored once.
type PostgresSink struct {
  db *sql.DB
  tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
  return &PostgresSink{db: db, tableName: table}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) EnsureTable(ctx context.Context) error {
  _, err := p.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS " + p.tableName + ` (
  addr TEXT NOT NULL,
  name TEXT NOT NULL,
  ts TIMESTAMPTZ NOT NULL,
  temperature DOUBLE PRECISION NOT NULL,
  specific_gravity DOUBLE PRECISION NOT NULL,
  specific_gravity_trend DOUBLE PRECISION,
  battery SMALLINT NOT NULL,
  rssi INTEGER NOT NULL,
  protocol SMALLINT NOT NULL,
  firmware TEXT,
  PRIMARY KEY (addr, ts)
)`)

  return errors.Wrapf(err, "failed to create table %s", p.tableName)
}

func (p *PostgresSink) Write(ctx context.Context, snapshot model.Snapshot) error {
  if len(snapshot.Readings) == 0 {
    return nil
  }

  byAddr := make(map[string]device.Device, len(snapshot.Readings))
  for dev := range snapshot.Readings {
    byAddr[dev.Addr().String()] = dev
  }

  // stable statement text and argument order, whatever the map iteration order.
  addrs := utils.SortedKeys(byAddr)

  var b strings.Builder
  b.WriteString("INSERT INTO ")
  b.WriteString(p.tableName)
  b.WriteString(" " + columns + " VALUES ")

  args := make([]any, 0, len(addrs) * numColumns)
  for i, addr := range addrs {
    dev := byAddr[addr]

    if i > 0 {
      b.WriteString(",")
    }

    b.WriteString("(")
    for col := 1; col <= numColumns; col++ {
      if col > 1 {
        b.WriteString(",")
      }
      fmt.Fprintf(&b, "$%d", len(args) + col)
    }
    b.WriteString(")")

    r := snapshot.Readings[dev]

    args = append(args,
      addr,
      dev.Name(),
      snapshot.Time,
      r.Temperature,
      r.SpecificGravity,
      sql.NullFloat64{Float64: r.SpecificGravityTrend, Valid: r.HasSpecificGravityTrend},
      int(r.BatteryLevel),
      r.SignalStrength,
      int(r.ProtocolVersion),
      sql.NullString{String: r.FirmwareVersion, Valid: r.HasFirmwareVersion},
    )
  }

  b.WriteString(" ON CONFLICT (addr, ts) DO NOTHING")

  _, err := p.db.ExecContext(ctx, b.String(), args...)

  return errors.Wrapf(err, "failed to write %d readings to %s", len(addrs), p.tableName)
}
