package metrics

import (
  "strconv"
  "time"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-rapt-exporter/device"
)

var (
  descTemperature = prometheus.NewDesc(
    "rapt_temperature_celsius",
    "Temperature reported by the hydrometer in Celsius.",
    []string{"name"},
    nil,
  )

  descSpecificGravity = prometheus.NewDesc(
    "rapt_specific_gravity",
    "Specific gravity reported by the hydrometer.",
    []string{"name"},
    nil,
  )

  descSpecificGravityTrend = prometheus.NewDesc(
    "rapt_specific_gravity_trend_per_day",
    "Change of specific gravity per day, as computed by the hydrometer. Only reported by newer firmwares.",
    []string{"name"},
    nil,
  )

  descAcceleration = prometheus.NewDesc(
    "rapt_acceleration",
    "Raw accelerometer reading, in device units.",
    []string{"name", "axis"},
    nil,
  )

  descBattery = prometheus.NewDesc(
    "rapt_battery_ratio",
    "Battery percentage reported by the hydrometer.",
    []string{"name"},
    nil,
  )

  descSignalStrength = prometheus.NewDesc(
    "rapt_signal_strength_dbm",
    "Signal strength of the last advertisement received from the hydrometer.",
    []string{"name"},
    nil,
  )

  descInfo = prometheus.NewDesc(
    "rapt_device_info",
    "Firmware and advertisement protocol version of the hydrometer. Always 1.",
    []string{"name", "firmware", "protocol"},
    nil,
  )
)

var axes = [3]string{"x", "y", "z"}

type CollectFunc func() (map[device.Device]device.Reading, time.Time)

type collector struct {
  CollectFunc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  prometheus.DescribeByCollect(c, ch)
}

func gauge(ts time.Time, desc *prometheus.Desc, v float64, labels... string) prometheus.Metric {
  return prometheus.NewMetricWithTimestamp(
    ts,
    prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...),
  )
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  out, ts := c.CollectFunc()

  if out == nil {
    panic("collector got empty data!")
  }

  for device, reading := range out {
    name := device.Name()

    ch <- gauge(ts, descTemperature, reading.Temperature, name)
    ch <- gauge(ts, descSpecificGravity, reading.SpecificGravity, name)

    if reading.HasSpecificGravityTrend {
      ch <- gauge(ts, descSpecificGravityTrend, reading.SpecificGravityTrend, name)
    }

    for i, axis := range axes {
      ch <- gauge(ts, descAcceleration, reading.Acceleration[i], name, axis)
    }

    ch <- gauge(ts, descBattery, float64(reading.BatteryLevel) / 100, name)
    ch <- gauge(ts, descSignalStrength, float64(reading.SignalStrength), name)

    // the firmware version comes in its own advertisement and may not have been seen yet.
    firmware := "unknown"

    if reading.HasFirmwareVersion {
      firmware = reading.FirmwareVersion
    }

    ch <- gauge(ts, descInfo, 1, name, firmware, strconv.Itoa(int(reading.ProtocolVersion)))
  }
}

func RegisterCollector(f CollectFunc, reg prometheus.Registerer) {
  c := &collector{f}

  reg.MustRegister(c)
}
