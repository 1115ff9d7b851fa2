// Package metrics exports per-source task metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janiskrasemann/forecast/internal/fetcher"
	"github.com/janiskrasemann/forecast/internal/reporter"
)

// Metrics implements aggregator.Observer.
type Metrics struct {
	activeTasks   prometheus.Gauge
	tasksStarted  *prometheus.CounterVec
	tasksFinished *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast",
			Name:      "active_tasks",
			Help:      "Per-source tasks currently running.",
		}),
		tasksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast",
			Name:      "tasks_started_total",
			Help:      "Per-source tasks started.",
		}, []string{"source"}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast",
			Name:      "tasks_finished_total",
			Help:      "Per-source tasks finished, by terminal status.",
		}, []string{"source", "status"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast",
			Name:      "fetch_failures_total",
			Help:      "Failed fetches, by failure kind.",
		}, []string{"source", "kind"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forecast",
			Name:      "task_duration_seconds",
			Help:      "Time from fetch start until the source was reported.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		gatherer: reg,
	}
	reg.MustRegister(m.activeTasks, m.tasksStarted, m.tasksFinished, m.fetchFailures, m.taskDuration)
	return m
}

func (m *Metrics) TaskStarted(source string) {
	m.activeTasks.Inc()
	m.tasksStarted.WithLabelValues(source).Inc()
}

func (m *Metrics) TaskFinished(source string, status reporter.Status, kind fetcher.Kind, dur time.Duration) {
	m.activeTasks.Dec()
	m.tasksFinished.WithLabelValues(source, status.String()).Inc()
	if kind != fetcher.KindNone {
		m.fetchFailures.WithLabelValues(source, kind.String()).Inc()
	}
	m.taskDuration.WithLabelValues(source).Observe(dur.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
