package collector_test

import (
  "context"
  "net"
  "strings"
  "sync"
  "testing"
  "time"

  ble_mod "github.com/go-ble/ble"
  "github.com/robertof/go-rapt-exporter/ble"
  "github.com/robertof/go-rapt-exporter/collector"
  "github.com/robertof/go-rapt-exporter/collector/model"
  "github.com/robertof/go-rapt-exporter/device"
  "github.com/robertof/go-rapt-exporter/device/rapt"
  "github.com/stretchr/testify/require"
)

var (
  advMetrics = []byte("RAPT\x02\x00\x01\x3e\x9d\xd1\xab\x94\x8bD|\xb9\xf64E\x02b&w*\xac")
  advVersion = []byte("KEG20220612_050156_81c6d1")
  advOther = []byte{0x4c, 0x00, 0x02, 0x15}
)

type fakeAdvertisement struct {
  ble_mod.Advertisement
  addr string
  data []byte
}

func (f fakeAdvertisement) Addr() ble_mod.Addr {
  return ble_mod.NewAddr(f.addr)
}

func (f fakeAdvertisement) ManufacturerData() []byte {
  return f.data
}

func (f fakeAdvertisement) LocalName() string {
  return ""
}

func (f fakeAdvertisement) RSSI() int {
  return -55
}

// fakeScanner replays one list of advertisements per scan, in order.
type fakeScanner struct {
  mu sync.Mutex
  attempts [][]fakeAdvertisement
  scans int
}

func (s *fakeScanner) ScanAddresses(
  ctx context.Context,
  addresses []net.HardwareAddr,
  onAdvertisement func(ble.Advertisement) bool,
) error {
  s.mu.Lock()
  attempt := s.scans
  s.scans += 1
  s.mu.Unlock()

  if attempt >= len(s.attempts) {
    return context.DeadlineExceeded
  }

  wanted := make(map[string]bool, len(addresses))

  for _, addr := range addresses {
    wanted[addr.String()] = true
  }

  for _, a := range s.attempts[attempt] {
    if !wanted[strings.ToLower(a.addr)] {
      continue
    }

    if onAdvertisement(a) {
      delete(wanted, strings.ToLower(a.addr))
    }
  }

  if len(wanted) > 0 {
    return context.DeadlineExceeded
  }

  return nil
}

func (s *fakeScanner) Scans() int {
  s.mu.Lock()
  defer s.mu.Unlock()

  return s.scans
}

func newDevice(t *testing.T, addr string) device.Device {
  t.Helper()

  dev, err := (&rapt.Factory{}).FromSpec(device.NewDeviceSpec("addr=" + addr))
  require.NoError(t, err)

  return dev
}

func TestCollectReadings_VersionThenMetrics(t *testing.T) {
  dev := newDevice(t, "00:11:22:33:44:55")
  scanner := &fakeScanner{attempts: [][]fakeAdvertisement{{
    {addr: "00:11:22:33:44:55", data: advVersion},
    {addr: "00:11:22:33:44:55", data: advMetrics},
  }}}

  out, err := collector.CollectReadingsWithOptions(scanner, context.Background(),
    []device.Device{dev}, collector.CollectionOptions{})

  require.NoError(t, err)
  require.Len(t, out, 1)
  require.NoError(t, out[dev].Error)
  require.Equal(t, 23.94, out[dev].Reading.Temperature)
  require.Equal(t, 1.0109, out[dev].Reading.SpecificGravity)
  require.Equal(t, -55, out[dev].Reading.SignalStrength)
  require.Equal(t, "20220612_050156_81c6d1", out[dev].Reading.FirmwareVersion)
  require.Equal(t, 1, scanner.Scans())
}

func TestCollectReadings_RetriesFailedDevices(t *testing.T) {
  first := newDevice(t, "00:11:22:33:44:55")
  second := newDevice(t, "78:e3:6d:3c:b9:94")

  scanner := &fakeScanner{attempts: [][]fakeAdvertisement{
    {
      {addr: "00:11:22:33:44:55", data: advMetrics},
      {addr: "78:e3:6d:3c:b9:94", data: advOther},
    },
    {
      {addr: "78:e3:6d:3c:b9:94", data: advMetrics},
    },
  }}

  out, err := collector.CollectReadingsWithOptions(scanner, context.Background(),
    []device.Device{first, second}, collector.CollectionOptions{MaxRetries: 2})

  require.NoError(t, err)
  require.NoError(t, out[first].Error)
  require.NoError(t, out[second].Error)
  require.Equal(t, 2, scanner.Scans())
}

func TestCollectReadings_GivesUpAfterRetries(t *testing.T) {
  dev := newDevice(t, "00:11:22:33:44:55")
  scanner := &fakeScanner{attempts: [][]fakeAdvertisement{
    {{addr: "00:11:22:33:44:55", data: advOther}},
    {{addr: "00:11:22:33:44:55", data: advOther}},
  }}

  out, err := collector.CollectReadingsWithOptions(scanner, context.Background(),
    []device.Device{dev}, collector.CollectionOptions{MaxRetries: 1})

  require.ErrorIs(t, err, context.DeadlineExceeded)
  require.ErrorIs(t, out[dev].Error, device.ErrInvalidData)
  require.Equal(t, 2, scanner.Scans())
}

func TestRecurring_UpdateAndLatest(t *testing.T) {
  dev := newDevice(t, "00:11:22:33:44:55")
  coll := collector.NewRecurring(&fakeScanner{}, []device.Device{dev})

  require.Panics(t, func() { coll.Latest() })

  var snapshots []model.Snapshot
  coll.OnUpdate = func(s model.Snapshot) {
    snapshots = append(snapshots, s)
  }

  readings := map[device.Device]device.Reading{dev: {Temperature: 20}}
  coll.Update(readings)

  got, ts := coll.Latest()
  require.Equal(t, readings, got)
  require.False(t, ts.IsZero())
  require.Len(t, snapshots, 1)
  require.Equal(t, ts, snapshots[0].Time)
}

func TestRecurring_Start(t *testing.T) {
  dev := newDevice(t, "00:11:22:33:44:55")
  scanner := &fakeScanner{attempts: [][]fakeAdvertisement{
    {{addr: "00:11:22:33:44:55", data: advMetrics}},
  }}

  coll := collector.NewRecurring(scanner, []device.Device{dev})
  updates := make(chan model.Snapshot, 1)
  coll.OnUpdate = func(s model.Snapshot) {
    select {
    case updates <- s:
    default:
    }
  }

  ctx, cancel := context.WithCancel(context.Background())
  done := make(chan struct{})

  go func() {
    coll.Start(ctx, 10 * time.Millisecond, collector.CollectionOptions{})
    close(done)
  }()

  select {
  case s := <-updates:
    require.Equal(t, 23.94, s.Readings[dev].Temperature)
  case <-time.After(5 * time.Second):
    t.Fatal("timed out waiting for a collection")
  }

  cancel()

  select {
  case <-done:
  case <-time.After(5 * time.Second):
    t.Fatal("collector did not stop after cancel")
  }
}
