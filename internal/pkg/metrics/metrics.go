// Package metrics defines and registers the custom Prometheus metrics of the
// identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry on package init via
// promauto and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Session metrics ──────────────────────────────────────────────────────────

// SessionVerificationsTotal counts session token verifications.
// Label:
//   - result: "valid", "refreshed" or "rejected"
var SessionVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_verifications_total",
		Help:      "Total number of session token verifications, by result.",
	},
	[]string{"result"},
)

// LoginAttemptsTotal counts log-in attempts.
// Label:
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of log-in attempts, by result.",
	},
	[]string{"result"},
)

// ── Password hashing metrics ──────────────────────────────────────────────────

// PasswordHashDuration measures a single hash or verify on a pool worker.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing operations on the hashing pool.",
		Buckets:   []float64{.01, .025, .05, .1, .2, .4, .8, 1.6},
	},
	[]string{"op"},
)

// HashQueueDepth tracks jobs waiting for a hashing worker.
var HashQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hash_queue_depth",
		Help:      "Current number of password hashing jobs waiting for a worker.",
	},
)

// ── Error metrics ────────────────────────────────────────────────────────────

// RequestErrorsTotal counts failed requests by error kind.
// Label:
//   - code: the stable error code rendered to the client (e.g. "authorization_failed")
var RequestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_errors_total",
		Help:      "Total number of failed requests, by error code.",
	},
	[]string{"code"},
)
