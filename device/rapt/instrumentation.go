package rapt

import (
  "github.com/prometheus/client_golang/prometheus"
)

var (
  anomaliesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
    Name: "rapt_exporter_decode_anomalies_total",
    Help: "Anomalies found while decoding RAPT advertisements, by kind.",
  }, []string{"kind"})
  classifiedPayloadsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
    Name: "rapt_exporter_payloads_classified_total",
    Help: "Manufacturer payloads received from configured devices, by classification.",
  }, []string{"classification"})
)

func RegisterMetrics(reg prometheus.Registerer) {
  reg.MustRegister(
    anomaliesCounter,
    classifiedPayloadsCounter,
  )
}

func observeUpdate(u Update) {
  for _, route := range u.Routes {
    classifiedPayloadsCounter.WithLabelValues(route.Classification.String()).Inc()
  }

  for _, anomaly := range u.Anomalies {
    anomaliesCounter.WithLabelValues(anomaly.Kind.String()).Inc()
  }
}
