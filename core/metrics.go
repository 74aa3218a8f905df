package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"universe-gateway/models"
)

const metricsNamespace = "universe"

// Metrics Prometheus 指标，使用独立 Registry 便于测试
type Metrics struct {
	registry *prometheus.Registry

	Generations   *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	Fallbacks     *prometheus.CounterVec
	DroppedTotal  prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	SessionsTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "generations_total",
				Help:      "Generation requests by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "generation_duration_seconds",
				Help:      "Remote generation latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
			},
			[]string{"kind"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fallbacks_total",
				Help:      "Responses served from fallback content",
			},
			[]string{"kind"},
		),
		DroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dropped_records_total",
				Help:      "Generated feed records dropped for missing fields",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sessions_total",
				Help:      "WebSocket sessions opened",
			},
		),
	}

	registry.MustRegister(
		m.Generations,
		m.Latency,
		m.Fallbacks,
		m.DroppedTotal,
		m.HTTPRequests,
		m.HTTPDuration,
		m.SessionsTotal,
	)
	return m
}

// Registry 供 /metrics 暴露
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record 实现 OutcomeRecorder
func (m *Metrics) Record(entry *models.GenerationLog) {
	m.Generations.WithLabelValues(entry.Kind, entry.Outcome).Inc()
	if entry.Duration > 0 {
		m.Latency.WithLabelValues(entry.Kind).Observe((time.Duration(entry.Duration) * time.Millisecond).Seconds())
	}
	if entry.Fallback {
		m.Fallbacks.WithLabelValues(entry.Kind).Inc()
	}
	if entry.Dropped > 0 {
		m.DroppedTotal.Add(float64(entry.Dropped))
	}
}

// MultiRecorder 把同一条遥测分发给多个接收方
type MultiRecorder []OutcomeRecorder

func (r MultiRecorder) Record(entry *models.GenerationLog) {
	for _, rec := range r {
		if rec != nil {
			rec.Record(entry)
		}
	}
}
