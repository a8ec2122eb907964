// Package metrics declares the Prometheus collectors shared by the
// recognition engine, the dispatcher and the catalog watcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mudra"

var (
	// Ticks counts recognition ticks.
	Ticks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Total number of recognition ticks",
		},
	)

	// TickDuration tracks how long a tick takes.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Duration of recognition ticks in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~200ms
		},
	)

	// Events counts emitted gesture events.
	// Labels: type (pose, motion), gesture
	Events = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_total",
			Help:      "Total number of gesture events emitted",
		},
		[]string{"type", "gesture"},
	)

	// Dispatch counts binding dispatch outcomes.
	// Labels: result (executed, suppressed, unbound, failed)
	Dispatch = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "dispatch_total",
			Help:      "Total number of binding dispatch outcomes",
		},
		[]string{"result"},
	)

	// CatalogReloads counts catalog file reloads.
	// Labels: result (applied, rejected)
	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "reloads_total",
			Help:      "Total number of catalog reload attempts",
		},
		[]string{"result"},
	)

	// ExecutorRateLimited counts actions dropped by the executor throttle.
	ExecutorRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "executor_rate_limited_total",
			Help:      "Total number of actions dropped by the executor rate limit",
		},
	)

	// Enabled is 1 while recognition is enabled.
	Enabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "enabled",
			Help:      "Whether recognition is enabled (1) or paused (0)",
		},
	)
)

// Dispatch results.
const (
	ResultExecuted   = "executed"
	ResultSuppressed = "suppressed"
	ResultUnbound    = "unbound"
	ResultFailed     = "failed"
)

// Catalog reload results.
const (
	ReloadApplied  = "applied"
	ReloadRejected = "rejected"
)
