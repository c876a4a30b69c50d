// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MLRequestDuration records inference-service call latency by operation.
	MLRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "undertone_ml_request_duration_seconds",
		Help:    "Inference service request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// MLRequestErrors counts inference-service calls that resolved to absence
	// (transport failure, timeout, or non-success status).
	MLRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "undertone_ml_request_errors_total",
		Help: "Total inference service calls resolving to an absent result",
	}, []string{"operation"})

	// OTPVerifications counts OTP verification outcomes.
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "undertone_otp_verifications_total",
		Help: "Total OTP verification attempts by outcome",
	}, []string{"outcome"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "undertone_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "undertone_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// OTP verification outcome labels.
const (
	OTPOutcomeSuccess     = "success"
	OTPOutcomeInvalid     = "invalid"
	OTPOutcomeExpired     = "expired"
	OTPOutcomeExhausted   = "exhausted"
	OTPOutcomeNotStarted  = "not_started"
)

// ObserveMLRequest records one inference-service call. absent marks calls
// that resolved to the absence value.
func ObserveMLRequest(operation string, start time.Time, absent bool) {
	MLRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if absent {
		MLRequestErrors.WithLabelValues(operation).Inc()
	}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
