// Package metrics owns the Prometheus registry for the process. Every method
// is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "miniworld"

// Outcome label values for action results.
const (
	OutcomeOK = "ok"
)

type Metrics struct {
	reg *prometheus.Registry

	actions         *prometheus.CounterVec
	questsCompleted prometheus.Counter
	questFailures   prometheus.Counter
	tickChanges     prometheus.Counter
	ticks           prometheus.Counter

	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

// New creates a private registry with the domain and HTTP collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "World edit actions by type and outcome.",
		}, []string{"action", "outcome"}),
		questsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quests_completed_total",
			Help:      "Quests that reached DONE.",
		}),
		questFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quest_progress_failures_total",
			Help:      "Quest progression errors after an action was persisted.",
		}),
		tickChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_changes_total",
			Help:      "Cells changed by world ticks.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "World tick invocations.",
		}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "HTTP requests answered with 4xx or 5xx.",
		}, []string{"method", "path", "status"}),
	}
	m.reg.MustRegister(
		m.actions, m.questsCompleted, m.questFailures, m.tickChanges, m.ticks,
		m.reqDuration, m.reqInflight, m.reqErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ActionObserved(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) QuestCompleted() {
	if m == nil {
		return
	}
	m.questsCompleted.Inc()
}

func (m *Metrics) QuestProgressFailed() {
	if m == nil {
		return
	}
	m.questFailures.Inc()
}

func (m *Metrics) TickApplied(changes int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickChanges.Add(float64(changes))
}

// RequestStarted marks one HTTP request in flight and returns the function
// that records its completion.
func (m *Metrics) RequestStarted() func(method, path string, status int) {
	if m == nil {
		return func(string, string, int) {}
	}
	start := time.Now()
	m.reqInflight.Inc()
	return func(method, path string, status int) {
		m.reqInflight.Dec()
		code := strconv.Itoa(status)
		m.reqDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
		if status >= 400 {
			m.reqErrors.WithLabelValues(method, path, code).Inc()
		}
	}
}
