package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "workcenter"

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	errorTotal       *prometheus.CounterVec
	actionTotal      *prometheus.CounterVec
	assistantTotal   *prometheus.CounterVec
	assistantLatency *prometheus.HistogramVec
	sessionsOpen     prometheus.Gauge
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of error responses by error code.",
		}, []string{"route", "method", "code"}),
		actionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of complaint actions by result.",
		}, []string{"action", "result"}),
		assistantTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_requests_total",
			Help:      "Total number of AI assistant requests by result.",
		}, []string{"kind", "result"}),
		assistantLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_request_duration_seconds",
			Help:      "Latency distribution for AI assistant requests.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"kind"}),
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Current number of open workcenter sessions.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestTotal,
		m.requestLatency,
		m.errorTotal,
		m.actionTotal,
		m.assistantTotal,
		m.assistantLatency,
		m.sessionsOpen,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts a served request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(route, method, code).Inc()
}

// RecordAction counts a complaint action.
func (m *Metrics) RecordAction(action string, err error) {
	if m == nil {
		return
	}
	m.actionTotal.WithLabelValues(action, result(err)).Inc()
}

// ObserveAssistant records one chat or draft call.
func (m *Metrics) ObserveAssistant(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.assistantTotal.WithLabelValues(kind, result(err)).Inc()
	m.assistantLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetSessionsOpen publishes the live session count.
func (m *Metrics) SetSessionsOpen(n int) {
	if m == nil {
		return
	}
	m.sessionsOpen.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
