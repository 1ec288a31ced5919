package rapt

import (
  "bytes"
  "encoding/binary"
  "fmt"
  "math"
  "net"
  "strconv"
  "strings"
)

// Metrics frame body, big endian, once the "PT" prefix has been stripped:
//
//   uint8   version
//   [6]byte v1: device MAC | v2: uint16 gravity velocity valid + float32 gravity velocity
//   uint16  temperature   (x / 128 - 273.15)
//   float32 gravity       (x / 1000)
//   int16   x, y, z       (x / 16)
//   int16   battery       (x / 256)
const (
  metricsBodyLen = metricsPayloadLen - metricsPrefixLen

  fallbackLayoutVersion = 1
)

// FrameLayout holds the version-dependent part of a metrics frame.
type FrameLayout interface {
  LayoutVersion() uint8
  trend() (float64, bool)
}

// FrameV1 carries the MAC address of the device. It is not used for naming: the address of
// the advertisement itself is.
type FrameV1 struct {
  Addr [6]byte
}

func (FrameV1) LayoutVersion() uint8 {
  return 1
}

func (FrameV1) trend() (float64, bool) {
  return 0, false
}

func (l FrameV1) HardwareAddr() net.HardwareAddr {
  return net.HardwareAddr(l.Addr[:])
}

// FrameV2 carries the specific gravity trend, in SG points per day.
type FrameV2 struct {
  GravityVelocityValid uint16
  GravityVelocity float32
}

func (FrameV2) LayoutVersion() uint8 {
  return 2
}

func (l FrameV2) trend() (float64, bool) {
  if l.GravityVelocityValid == 0 {
    return 0, false
  }

  return float64(l.GravityVelocity), true
}

type layoutDecoder func(b []byte) FrameLayout

var layoutDecoders = map[uint8]layoutDecoder{
  1: func(b []byte) FrameLayout {
    var l FrameV1
    copy(l.Addr[:], b)
    return l
  },
  2: func(b []byte) FrameLayout {
    return FrameV2{
      GravityVelocityValid: binary.BigEndian.Uint16(b),
      GravityVelocity: math.Float32frombits(binary.BigEndian.Uint32(b[2:])),
    }
  },
}

type MetricsFrame struct {
  ProtocolVersion uint8
  Temperature float64
  SpecificGravity float64
  AccelerationX float64
  AccelerationY float64
  AccelerationZ float64
  Battery int
  SpecificGravityTrend float64
  Layout FrameLayout

  HasSpecificGravityTrend bool
}

func (f MetricsFrame) String() string {
  fields := []string{
    fmt.Sprintf("Version=%d", f.ProtocolVersion),
    fmt.Sprintf("Temperature=%.2f", f.Temperature),
    fmt.Sprintf("SpecificGravity=%.4f", f.SpecificGravity),
    fmt.Sprintf("Acceleration=(%v,%v,%v)", f.AccelerationX, f.AccelerationY, f.AccelerationZ),
    fmt.Sprintf("Battery=%d%%", f.Battery),
  }

  if f.HasSpecificGravityTrend {
    fields = append(fields, fmt.Sprintf("Trend=%v", f.SpecificGravityTrend))
  }

  return "MetricsFrame[" + strings.Join(fields, ",") + "]"
}

// DecodeMetrics decodes a metrics frame body. Bodies with an unexpected length are never
// decoded. Versions without a known layout are decoded with the version 1 layout and
// reported as an UnexpectedVersion anomaly: the device has been seen bumping the version
// byte and the measurement fields are assumed to be where they always were.
func DecodeMetrics(body []byte) (f MetricsFrame, anomalies Anomalies, err error) {
  if len(body) != metricsBodyLen {
    return f, nil, fmt.Errorf("%w: metrics body has %d bytes, want %d",
      ErrInvalidLength, len(body), metricsBodyLen)
  }

  bo := binary.BigEndian

  f.ProtocolVersion = body[0]
  decodeLayout, ok := layoutDecoders[f.ProtocolVersion]

  if !ok {
    anomalies = append(anomalies, Anomaly{
      Kind: AnomalyUnexpectedVersion,
      VendorID: MetricsVendorID,
      Payload: bytes.Clone(body),
      Err: fmt.Errorf("%w: version %d, measurements may be incorrect",
        ErrUnexpectedVersion, f.ProtocolVersion),
    })
    decodeLayout = layoutDecoders[fallbackLayoutVersion]
  }

  f.Layout = decodeLayout(body[1:7])
  f.SpecificGravityTrend, f.HasSpecificGravityTrend = f.Layout.trend()

  rawTemp := bo.Uint16(body[7:])
  rawGravity := math.Float32frombits(bo.Uint32(body[9:]))

  f.Temperature = roundTo(float64(rawTemp) / 128 - 273.15, 2)
  f.SpecificGravity = roundTo(float64(rawGravity) / 1000, 4)
  f.AccelerationX = float64(int16(bo.Uint16(body[13:]))) / 16
  f.AccelerationY = float64(int16(bo.Uint16(body[15:]))) / 16
  f.AccelerationZ = float64(int16(bo.Uint16(body[17:]))) / 16
  f.Battery = int(math.RoundToEven(float64(int16(bo.Uint16(body[19:]))) / 256))

  return f, anomalies, nil
}

// roundTo rounds the exact binary value of v to the given number of decimal digits, ties
// to even.
func roundTo(v float64, digits int) float64 {
  r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', digits, 64), 64)

  if err != nil {
    return v
  }

  return r
}
