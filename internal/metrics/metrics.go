// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// Authentication metrics
	LoginAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of login attempts",
	})
	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "login_failures_total",
		Help: "Total number of failed login attempts",
	})

	// Facility metrics
	VehicleEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicle_entries_total",
		Help: "Total number of registered vehicle entries",
	})
	VehicleExits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicle_exits_total",
		Help: "Total number of registered vehicle exits",
	})
	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of recorded payments",
	})
)
