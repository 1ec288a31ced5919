package rapt_test

import (
  "testing"

  "github.com/robertof/go-rapt-exporter/device/rapt"
  "github.com/stretchr/testify/require"
)

func TestDecodeVersion(t *testing.T) {
  info, anomaly := rapt.DecodeVersion([]byte("G20220612_050156_81c6d1"))

  require.Nil(t, anomaly)
  require.Equal(t, "20220612_050156_81c6d1", info.Version)
}

func TestDecodeVersion_OnlyMarker(t *testing.T) {
  info, anomaly := rapt.DecodeVersion([]byte("G"))

  require.Nil(t, anomaly)
  require.Equal(t, "", info.Version)
}

func TestDecodeVersion_Malformed(t *testing.T) {
  for _, payload := range [][]byte{
    nil,
    []byte("X20220612_050156_81c6d1"),
    []byte("g20220612"),
    []byte("G2022\xff0612"),
  } {
    info, anomaly := rapt.DecodeVersion(payload)

    require.Equal(t, rapt.VersionInfo{}, info)
    require.NotNil(t, anomaly, "%q", payload)
    require.Equal(t, rapt.AnomalyMalformed, anomaly.Kind)
    require.Equal(t, rapt.VersionVendorID, anomaly.VendorID)
    require.ErrorIs(t, anomaly.Err, rapt.ErrMalformed)
  }
}
