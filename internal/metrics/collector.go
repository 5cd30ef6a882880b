package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RelayStats provides the metrics collector access to relay state.
type RelayStats interface {
	InFlight() int64
	Configured() bool
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats RelayStats

	inFlight   *prometheus.Desc
	configured *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (metrics will report 0).
func NewCollector(stats RelayStats) *Collector {
	return &Collector{
		stats: stats,
		inFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "relay", "in_flight"),
			"Relay invocations currently running.",
			nil, nil,
		),
		configured: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "relay", "provider_configured"),
			"1 if the transcription provider credential is set.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inFlight
	ch <- c.configured
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.configured, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(c.stats.InFlight()))
	configured := 0.0
	if c.stats.Configured() {
		configured = 1
	}
	ch <- prometheus.MustNewConstMetric(c.configured, prometheus.GaugeValue, configured)
}
