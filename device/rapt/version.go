package rapt

import (
  "bytes"
  "fmt"
)

// The version payload looks like "KEG20220612_050156_81c6d1": "KE" is the vendor id and
// "G" a sub-id preceding the version itself.
const versionMarker = 'G'

type VersionInfo struct {
  Version string
}

func (v VersionInfo) String() string {
  return v.Version
}

// DecodeVersion extracts the firmware version from a version payload. The version is an
// opaque identifier and is returned as-is.
func DecodeVersion(payload []byte) (info VersionInfo, anomaly *Anomaly) {
  if len(payload) == 0 || payload[0] != versionMarker {
    return info, &Anomaly{
      Kind: AnomalyMalformed,
      VendorID: VersionVendorID,
      Payload: bytes.Clone(payload),
      Err: fmt.Errorf("%w: %q doesn't look like a version payload",
        ErrMalformed, payload),
    }
  }

  for _, c := range payload[1:] {
    if c > 0x7f {
      return info, &Anomaly{
        Kind: AnomalyMalformed,
        VendorID: VersionVendorID,
        Payload: bytes.Clone(payload),
        Err: fmt.Errorf("%w: non-ASCII byte 0x%02x in version %q", ErrMalformed, c, payload),
      }
    }
  }

  info.Version = string(payload[1:])

  return info, nil
}
