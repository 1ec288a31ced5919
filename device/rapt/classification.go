package rapt

import (
  "bytes"
  "strconv"
)

const (
  // "RA" in little endian, the start of "RAPT".
  MetricsVendorID uint16 = 0x4152
  // "KE" in little endian, the start of "KEG".
  VersionVendorID uint16 = 0x454b

  // Metrics advertisements are "PT" followed by the metrics frame body.
  metricsPayloadLen = 23
  metricsPrefixLen = 2
)

// hardware revision advertisement ("RAPTdPillG1" once the vendor id is prepended)
var hwRevisionBeacon = []byte("PTdPillG1")

type Classification uint8

const (
  ClassificationUnrecognized Classification = iota
  ClassificationIgnorable
  ClassificationMetrics
  ClassificationFirmwareVersion
)

func (c Classification) String() string {
  switch c {
  case ClassificationUnrecognized:
    return "Unrecognized"
  case ClassificationIgnorable:
    return "Ignorable"
  case ClassificationMetrics:
    return "Metrics"
  case ClassificationFirmwareVersion:
    return "FirmwareVersion"
  default:
    panic("unknown classification: " + strconv.Itoa(int(c)))
  }
}

// Classify determines what a single vendor-tagged payload contains without decoding it.
// Metrics payloads with an unexpected length are Unrecognized; the router reports those
// as InvalidLength anomalies.
func Classify(vendorID uint16, payload []byte) Classification {
  switch vendorID {
  case VersionVendorID:
    return ClassificationFirmwareVersion
  case MetricsVendorID:
    if bytes.Equal(payload, hwRevisionBeacon) {
      return ClassificationIgnorable
    }

    if len(payload) != metricsPayloadLen {
      return ClassificationUnrecognized
    }

    return ClassificationMetrics
  default:
    return ClassificationUnrecognized
  }
}

// IsRecognized reports whether the advertisement carries any of the RAPT vendor ids.
func IsRecognized(adv RawAdvertisement) bool {
  _, hasMetrics := adv[MetricsVendorID]
  _, hasVersion := adv[VersionVendorID]

  return hasMetrics || hasVersion
}
