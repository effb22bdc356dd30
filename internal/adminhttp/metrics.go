package adminhttp

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/asciichat/fanout/internal/fanout"
	"github.com/asciichat/fanout/internal/ledger"
)

// RegistryStats is the subset of registry.Registry the collector needs,
// expressed in terms of fanout.ClientSnapshot/fanout.RegistrySnapshotter so
// *registry.Registry satisfies it with no adapter required.
type RegistryStats interface {
	Count() int
	Snapshot() []fanout.ClientSnapshot
}

// Collector is a prometheus.Collector gathering fanout server metrics at
// scrape time, grounded on the teacher's flowpbx-style metrics.Collector
// (internal/metrics/metrics.go): provider interfaces consulted lazily in
// Collect rather than pushed eagerly, descriptors built once in NewCollector.
type Collector struct {
	registry  RegistryStats
	ledger    *ledger.Ledger
	startTime time.Time

	clientsDesc      *prometheus.Desc
	sendingVideoDesc *prometheus.Desc
	eventsTotalDesc  *prometheus.Desc
	uptimeDesc       *prometheus.Desc
}

// NewCollector constructs a Collector. led may be nil if no ledger is
// configured, in which case event-derived metrics are omitted.
func NewCollector(registry RegistryStats, led *ledger.Ledger, startTime time.Time) *Collector {
	return &Collector{
		registry:  registry,
		ledger:    led,
		startTime: startTime,

		clientsDesc: prometheus.NewDesc(
			"asciichatd_clients_connected",
			"Number of currently connected clients",
			nil, nil,
		),
		sendingVideoDesc: prometheus.NewDesc(
			"asciichatd_clients_sending_video",
			"Number of connected clients currently streaming video",
			nil, nil,
		),
		eventsTotalDesc: prometheus.NewDesc(
			"asciichatd_events_total",
			"Total operational events recorded in the ledger, by kind",
			[]string{"kind"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"asciichatd_uptime_seconds",
			"Seconds since the fanout process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.clientsDesc
	ch <- c.sendingVideoDesc
	ch <- c.eventsTotalDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.registry != nil {
		snap := c.registry.Snapshot()
		sending := 0
		for _, s := range snap {
			if s.IsSendingVideo {
				sending++
			}
		}
		ch <- prometheus.MustNewConstMetric(c.clientsDesc, prometheus.GaugeValue, float64(c.registry.Count()))
		ch <- prometheus.MustNewConstMetric(c.sendingVideoDesc, prometheus.GaugeValue, float64(sending))
	}

	if c.ledger != nil {
		for _, kind := range []ledger.Kind{
			ledger.ClientConnected,
			ledger.ClientDisconnected,
			ledger.FrameRejected,
			ledger.BackpressureSkip,
		} {
			events, err := c.ledger.RecentEvents(kind, 1<<30)
			if err != nil {
				log.Printf("[adminhttp] collect ledger events kind=%s: %v", kind, err)
				continue
			}
			ch <- prometheus.MustNewConstMetric(c.eventsTotalDesc, prometheus.CounterValue, float64(len(events)), string(kind))
		}
	}

	ch <- prometheus.MustNewConstMetric(c.uptimeDesc, prometheus.GaugeValue, time.Since(c.startTime).Seconds())
}
