package rapt

import (
  "errors"
  "fmt"
  "strconv"
)

var (
  ErrInvalidLength = errors.New("invalid payload length")
  ErrUnexpectedVersion = errors.New("unexpected payload version")
  ErrMalformed = errors.New("malformed payload")
)

type AnomalyKind uint8

const (
  AnomalyInvalidLength AnomalyKind = iota + 1
  AnomalyUnexpectedVersion
  AnomalyMalformed
)

func (k AnomalyKind) String() string {
  switch k {
  case AnomalyInvalidLength:
    return "invalid_length"
  case AnomalyUnexpectedVersion:
    return "unexpected_version"
  case AnomalyMalformed:
    return "malformed"
  default:
    panic("unknown anomaly kind: " + strconv.Itoa(int(k)))
  }
}

// Anomaly is a non-fatal condition found while decoding a payload. The affected output is
// either omitted (InvalidLength, Malformed) or decoded on a best-effort basis
// (UnexpectedVersion).
type Anomaly struct {
  Kind AnomalyKind
  VendorID uint16
  Payload []byte
  Err error
}

func (a Anomaly) String() string {
  return fmt.Sprintf("anomaly[kind=%v, vendor=0x%04x, err=%v]", a.Kind, a.VendorID, a.Err)
}

type Anomalies []Anomaly

// Count returns how many anomalies of the given kind were collected.
func (as Anomalies) Count(kind AnomalyKind) (n int) {
  for _, a := range as {
    if a.Kind == kind {
      n += 1
    }
  }

  return n
}
