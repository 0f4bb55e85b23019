// Package metrics exposes sync counters through a Prometheus registry.
//
// A sync run is a short-lived batch job, so metrics are written as a node-exporter
// textfile at the end of the run; the serve command exposes the same registry over
// HTTP for dataset gauges.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meetup_sync"

// Reconcile outcome label values
const (
	ResultAdded     = "added"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
)

// Metrics holds the collectors recorded by the sync pipeline
type Metrics struct {
	registry *prometheus.Registry

	Scraped         prometheus.Counter
	Skipped         prometheus.Counter
	RenderFallbacks *prometheus.CounterVec
	Reconciled      *prometheus.CounterVec
	LoadFailures    prometheus.Counter
	DroppedRecords  prometheus.Counter
	Duration        prometheus.Gauge
	LastSuccess     prometheus.Gauge
	DatasetEvents   *prometheus.GaugeVec
}

// New creates a Metrics backed by its own registry
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Scraped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_scraped_total",
		Help:      "Event detail pages turned into records",
	})
	m.Skipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Event detail pages that produced no record",
	})
	m.RenderFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "render_fallbacks_total",
		Help:      "Times the headless render tier was used",
	}, []string{"stage"})
	m.Reconciled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_reconciled_total",
		Help:      "Reconciled records by outcome",
	}, []string{"result"})
	m.LoadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "existing_load_failures_total",
		Help:      "Runs where the existing dataset could not be read",
	})
	m.DroppedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "existing_records_dropped_total",
		Help:      "Stored records skipped on load because they had no id",
	})
	m.Duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Wall time of the last sync run",
	})
	m.LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last sync that completed without a fatal error",
	})
	m.DatasetEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dataset_events",
		Help:      "Events in the dataset by category",
	}, []string{"category"})

	m.registry.MustRegister(
		m.Scraped, m.Skipped, m.RenderFallbacks, m.Reconciled,
		m.LoadFailures, m.DroppedRecords, m.Duration, m.LastSuccess,
		m.DatasetEvents,
	)
	return m
}

// ObserveRun records the wall time and, on success, the completion timestamp
func (m *Metrics) ObserveRun(started time.Time, ok bool) {
	m.Duration.Set(time.Since(started).Seconds())
	if ok {
		m.LastSuccess.SetToCurrentTime()
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node-exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
