package rapt

import (
  "net"
  "testing"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/testutil"
  "github.com/stretchr/testify/require"
)

func TestObserveUpdate(t *testing.T) {
  invalidLength := anomaliesCounter.WithLabelValues(AnomalyInvalidLength.String())
  malformed := anomaliesCounter.WithLabelValues(AnomalyMalformed.String())
  unrecognized := classifiedPayloadsCounter.WithLabelValues(ClassificationUnrecognized.String())
  versions := classifiedPayloadsCounter.WithLabelValues(ClassificationFirmwareVersion.String())

  before := []float64{
    testutil.ToFloat64(invalidLength),
    testutil.ToFloat64(malformed),
    testutil.ToFloat64(unrecognized),
    testutil.ToFloat64(versions),
  }

  observeUpdate(Decode(RawAdvertisement{
    MetricsVendorID: []byte("PT"),
    VersionVendorID: []byte("X1"),
  }, net.HardwareAddr{0, 0, 0, 0, 0, 1}, -80))

  require.Equal(t, before[0] + 1, testutil.ToFloat64(invalidLength))
  require.Equal(t, before[1] + 1, testutil.ToFloat64(malformed))
  require.Equal(t, before[2] + 1, testutil.ToFloat64(unrecognized))
  require.Equal(t, before[3] + 1, testutil.ToFloat64(versions))
}

func TestRegisterMetrics(t *testing.T) {
  reg := prometheus.NewRegistry()
  RegisterMetrics(reg)

  observeUpdate(Decode(RawAdvertisement{MetricsVendorID: []byte("PT")}, nil, 0))

  count, err := testutil.GatherAndCount(reg, "rapt_exporter_decode_anomalies_total")
  require.NoError(t, err)
  require.GreaterOrEqual(t, count, 1)
}
