package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	transitionsTotal      *prometheus.CounterVec
	emailDispatchTotal    *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
	statsCacheLookupTotal *prometheus.CounterVec
	liveFeedConnections   prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_transitions_total",
			Help: "Appointment status transitions by name and resulting status.",
		}, []string{"transition", "status"})

		emailDispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Email dispatch attempts by kind and outcome.",
		}, []string{"kind", "status"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_events_published_total",
			Help: "Appointment events published per broker and outcome.",
		}, []string{"broker", "outcome"})

		statsCacheLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stats_cache_lookups_total",
			Help: "Statistics cache lookups by report and result.",
		}, []string{"report", "result"})

		liveFeedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "appointment_live_feed_connections",
			Help: "Websocket clients currently following appointment events.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			transitionsTotal,
			emailDispatchTotal,
			eventsPublishedTotal,
			statsCacheLookupTotal,
			liveFeedConnections,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AppointmentTransitions counts successful appointment status changes.
func AppointmentTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// EmailDispatches counts email attempts.
func EmailDispatches() *prometheus.CounterVec {
	RegisterMetrics()
	return emailDispatchTotal
}

// EventsPublished counts appointment events handed to brokers.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// StatsCacheLookups counts statistics cache hits and misses.
func StatsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheLookupTotal
}

// LiveFeedConnections tracks open live feed websockets.
func LiveFeedConnections() prometheus.Gauge {
	RegisterMetrics()
	return liveFeedConnections
}
