package rapt_test

import (
  "encoding/binary"
  "math"
  "testing"

  "github.com/robertof/go-rapt-exporter/device/rapt"
  "github.com/stretchr/testify/require"
)

type rawFrame struct {
  version byte
  layout [6]byte
  temperature uint16
  gravity float32
  x, y, z int16
  battery int16
}

func (f rawFrame) body() []byte {
  bo := binary.BigEndian
  b := make([]byte, 21)

  b[0] = f.version
  copy(b[1:7], f.layout[:])
  bo.PutUint16(b[7:], f.temperature)
  bo.PutUint32(b[9:], math.Float32bits(f.gravity))
  bo.PutUint16(b[13:], uint16(f.x))
  bo.PutUint16(b[15:], uint16(f.y))
  bo.PutUint16(b[17:], uint16(f.z))
  bo.PutUint16(b[19:], uint16(f.battery))

  return b
}

func (f rawFrame) payload() []byte {
  return append([]byte("PT"), f.body()...)
}

func TestDecodeMetrics_V1(t *testing.T) {
  frame, anomalies, err := rapt.DecodeMetrics(rawFrame{
    version: 1,
    layout: [6]byte{0x78, 0xe3, 0x6d, 0x3c, 0xb9, 0x94},
    temperature: 6000,
    gravity: 1010.9,
    x: -32,
    y: 16,
    z: 40,
    battery: 11008,
  }.body())

  require.NoError(t, err)
  require.Empty(t, anomalies)
  require.Equal(t, rapt.MetricsFrame{
    ProtocolVersion: 1,
    Temperature: -226.27,
    SpecificGravity: 1.0109,
    AccelerationX: -2,
    AccelerationY: 1,
    AccelerationZ: 2.5,
    Battery: 43,
    Layout: rapt.FrameV1{Addr: [6]byte{0x78, 0xe3, 0x6d, 0x3c, 0xb9, 0x94}},
  }, frame)
  require.Equal(t, "78:e3:6d:3c:b9:94", frame.Layout.(rapt.FrameV1).HardwareAddr().String())
}

func TestDecodeMetrics_V2Trend(t *testing.T) {
  tests := []struct {
    name string
    layout [6]byte
    wantTrend float64
    wantHasTrend bool
  }{
    {
      name: "valid",
      layout: [6]byte{0x00, 0x01, 0x3e, 0x9d, 0xd1, 0xab},
      wantTrend: 0.30824026465415955,
      wantHasTrend: true,
    },
    {
      name: "invalid with velocity bytes set",
      layout: [6]byte{0x00, 0x00, 0x3e, 0x9d, 0xd1, 0xab},
    },
    {
      name: "invalid",
      layout: [6]byte{},
    },
  }

  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      frame, anomalies, err := rapt.DecodeMetrics(rawFrame{
        version: 2,
        layout: tt.layout,
        temperature: 38027,
        gravity: 1010.9,
        battery: 10924,
      }.body())

      require.NoError(t, err)
      require.Empty(t, anomalies)
      require.Equal(t, uint8(2), frame.ProtocolVersion)
      require.Equal(t, uint8(2), frame.Layout.LayoutVersion())
      require.Equal(t, tt.wantHasTrend, frame.HasSpecificGravityTrend)
      require.Equal(t, tt.wantTrend, frame.SpecificGravityTrend)
      require.Equal(t, 23.94, frame.Temperature)
      require.Equal(t, 1.0109, frame.SpecificGravity)
      require.Equal(t, 43, frame.Battery)
    })
  }
}

// The layout of versions other than 1 and 2 is unknown: they are decoded with the version 1
// layout as an approximation, which is only as good as the assumption that the measurement
// fields did not move.
func TestDecodeMetrics_UnexpectedVersionFallsBackToV1(t *testing.T) {
  for _, version := range []byte{0, 3, 255} {
    raw := rawFrame{
      version: version,
      layout: [6]byte{0x00, 0x01, 0x3e, 0x9d, 0xd1, 0xab},
      temperature: 38027,
      gravity: 1010.9,
      battery: 11008,
    }

    frame, anomalies, err := rapt.DecodeMetrics(raw.body())

    require.NoError(t, err)
    require.Len(t, anomalies, 1)
    require.Equal(t, rapt.AnomalyUnexpectedVersion, anomalies[0].Kind)
    require.ErrorIs(t, anomalies[0].Err, rapt.ErrUnexpectedVersion)
    require.Equal(t, raw.body(), anomalies[0].Payload)

    require.Equal(t, version, frame.ProtocolVersion)
    require.Equal(t, uint8(1), frame.Layout.LayoutVersion())
    require.False(t, frame.HasSpecificGravityTrend)
    require.Equal(t, 23.94, frame.Temperature)
    require.Equal(t, 43, frame.Battery)
  }
}

func TestDecodeMetrics_InvalidLength(t *testing.T) {
  body := rawFrame{version: 1}.body()

  for _, b := range [][]byte{nil, body[:20], append(body, 0x00), rawFrame{version: 1}.payload()} {
    frame, anomalies, err := rapt.DecodeMetrics(b)

    require.ErrorIs(t, err, rapt.ErrInvalidLength)
    require.Empty(t, anomalies)
    require.Equal(t, rapt.MetricsFrame{}, frame)
  }
}

func TestDecodeMetrics_Rounding(t *testing.T) {
  tests := []struct {
    temperature uint16
    battery int16
    wantTemperature float64
    wantBattery int
  }{
    {temperature: 34976, battery: 0, wantTemperature: 0.1, wantBattery: 0},
    {temperature: 0, battery: 128, wantTemperature: -273.15, wantBattery: 0},
    {temperature: 37856, battery: 384, wantTemperature: 22.6, wantBattery: 2},
    {temperature: 65535, battery: 25600, wantTemperature: 238.84, wantBattery: 100},
    {temperature: 38027, battery: -256, wantTemperature: 23.94, wantBattery: -1},
  }

  for _, tt := range tests {
    frame, _, err := rapt.DecodeMetrics(rawFrame{
      version: 1,
      temperature: tt.temperature,
      battery: tt.battery,
    }.body())

    require.NoError(t, err)
    require.Equal(t, tt.wantTemperature, frame.Temperature, "temperature %d", tt.temperature)
    require.Equal(t, tt.wantBattery, frame.Battery, "battery %d", tt.battery)
  }
}
