package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	submissionsSubmitted   *prometheus.CounterVec
	gradesRecorded         prometheus.Counter
	notificationsPublished *prometheus.CounterVec
	streamClientsActive    prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_submitted_total",
			Help: "Total number of finalized submission attempts.",
		}, []string{"assignment_type"})

		gradesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grades_recorded_total",
			Help: "Total number of grading actions, including re-grades.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications fanned out, by event type.",
		}, []string{"type"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_stream_clients_active",
			Help: "Number of clients currently subscribed to the notification stream.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsSubmitted,
			gradesRecorded,
			notificationsPublished,
			streamClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionsSubmitted exposes the counter for finalized submissions.
func SubmissionsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsSubmitted
}

// GradesRecorded exposes the counter for grading actions.
func GradesRecorded() prometheus.Counter {
	RegisterMetrics()
	return gradesRecorded
}

// NotificationsPublished exposes the counter for notification fan-out.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// StreamClientsActive exposes the gauge for live notification subscribers.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}
