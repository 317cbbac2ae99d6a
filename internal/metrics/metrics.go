// Package metrics exposes Prometheus counters for the refresh pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes recorded by the service.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Metrics bundles the collectors on a private registry so tests never fight
// over the global one.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal    *prometheus.CounterVec
	RefreshSeconds  prometheus.Histogram
	LastRefreshUnix prometheus.Gauge
	SnapshotEpoch   prometheus.Gauge
	DroppedRecords  *prometheus.CounterVec
}

// New builds and registers the collectors under the given namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Snapshot refresh attempts by outcome.",
		}, []string{"outcome"}),
		RefreshSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of one snapshot refresh.",
			Buckets:   prometheus.DefBuckets,
		}),
		LastRefreshUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last applied snapshot.",
		}),
		SnapshotEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_epoch",
			Help:      "Epoch number of the last applied snapshot.",
		}),
		DroppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Records dropped during snapshot normalization, by kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		m.RefreshTotal,
		m.RefreshSeconds,
		m.LastRefreshUnix,
		m.SnapshotEpoch,
		m.DroppedRecords,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
