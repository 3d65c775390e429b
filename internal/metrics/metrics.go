// Package metrics exposes prometheus collectors for goal synchronization
// and goal writes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goals"

const (
	SyncErrorAuth         = "auth"
	SyncErrorSubscription = "subscription"
	SyncErrorListener     = "listener"

	WriteCreate = "create"
	WriteUpdate = "update"
	WriteRemove = "remove"
)

type Metrics struct {
	registry *prometheus.Registry

	syncBatches   prometheus.Counter
	syncErrors    *prometheus.CounterVec
	subscriptions prometheus.Gauge
	writes        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "batches_total",
			Help:      "Full-replace goal batches applied to sync sessions.",
		}),
		syncErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "errors_total",
			Help:      "Sync session failures by kind.",
		}, []string{"kind"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "subscriptions",
			Help:      "Open live goal subscriptions.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Goal store writes by operation and result.",
		}, []string{"op", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.syncBatches,
		m.syncErrors,
		m.subscriptions,
		m.writes,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SyncBatch() {
	if m == nil {
		return
	}
	m.syncBatches.Inc()
}

func (m *Metrics) SyncError(kind string) {
	if m == nil {
		return
	}
	m.syncErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *Metrics) Write(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(op, result).Inc()
}
