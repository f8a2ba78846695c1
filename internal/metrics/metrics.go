package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	outcomes       *prometheus.CounterVec
	adminRequests  *prometheus.CounterVec
	saveDuration   *prometheus.HistogramVec
	historyRecords prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_moderation_outcomes_total",
			Help: "Timeout requests by outcome",
		}, []string{"status"}),
		adminRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_admin_requests_total",
			Help: "Admin API requests by route and status class",
		}, []string{"route", "status"}),
		saveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eta_store_save_seconds",
			Help:    "Time spent persisting a document",
			Buckets: prometheus.DefBuckets,
		}, []string{"document"}),
		historyRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eta_history_records",
			Help: "Timeout records currently held in history",
		}),
	}
	m.registry.MustRegister(
		m.outcomes,
		m.adminRequests,
		m.saveDuration,
		m.historyRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveOutcome(status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveAdminRequest(route string, code int) {
	if m == nil {
		return
	}
	m.adminRequests.WithLabelValues(route, statusClass(code)).Inc()
}

func (m *Metrics) ObserveSave(document string, d time.Duration) {
	if m == nil {
		return
	}
	m.saveDuration.WithLabelValues(document).Observe(d.Seconds())
}

func (m *Metrics) SetHistoryRecords(n int) {
	if m == nil {
		return
	}
	m.historyRecords.Set(float64(n))
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

type Persister interface {
	Load(ctx context.Context, name string, v any) error
	Save(ctx context.Context, name string, v any) error
}

type instrumented struct {
	next    Persister
	metrics *Metrics
}

// Instrument wraps p so every Save is timed per document name.
func Instrument(p Persister, m *Metrics) Persister {
	if m == nil {
		return p
	}
	return &instrumented{next: p, metrics: m}
}

func (i *instrumented) Load(ctx context.Context, name string, v any) error {
	return i.next.Load(ctx, name, v)
}

func (i *instrumented) Save(ctx context.Context, name string, v any) error {
	start := time.Now()
	err := i.next.Save(ctx, name, v)
	i.metrics.ObserveSave(name, time.Since(start))
	return err
}
