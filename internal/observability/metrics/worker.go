package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventTotal    *prometheus.CounterVec
	handleTotal   *prometheus.CounterVec
	handleLatency *prometheus.HistogramVec
	eventLag      *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "worker",
			Name:      "events_total",
			Help:      "Total consumed document events by ingestion outcome.",
		},
		[]string{"service", "status"},
	)
	handleTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Subsystem: "worker",
			Name:      "handle_total",
			Help:      "Total handled events by handler result.",
		},
		[]string{"service", "result"},
	)
	handleLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Subsystem: "worker",
			Name:      "handle_duration_seconds",
			Help:      "Event handler duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between event emission and handling start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(eventTotal, handleTotal, handleLatency, eventLag)

	return &WorkerMetrics{
		registry:      registry,
		eventTotal:    eventTotal,
		handleTotal:   handleTotal,
		handleLatency: handleLatency,
		eventLag:      eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveEvent(service, status string, lag time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.eventTotal.WithLabelValues(service, status).Inc()
	if lag >= 0 {
		m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
	}
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.handleTotal.WithLabelValues(service, result).Inc()
	m.handleLatency.WithLabelValues(service).Observe(duration.Seconds())
}
