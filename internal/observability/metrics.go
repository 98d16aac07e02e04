// Package observability exposes the PAC's prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of pending/interrupted SCHEDULE tasks.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pac_queue_depth",
		Help: "Current number of SCHEDULE tasks waiting in the queue",
	})

	// Decisions tracks admission decisions by outcome.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pac_decisions_total",
		Help: "Total arbitration decisions made by the controller",
	}, []string{"decision"}) // accepted, busy, emergency_denied, id_mismatch, anti_zombie

	// Mode tracks the current externally visible mode (1 = active).
	Mode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pac_mode",
		Help: "Current controller mode",
	}, []string{"mode"})

	// TimeShiftSeconds tracks the magnitude of applied time shifts.
	TimeShiftSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pac_time_shift_seconds",
		Help:    "Duration by which queued schedules were shifted forward",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
	})

	// PublishFailures tracks best-effort external write failures.
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pac_publish_failures_total",
		Help: "Failed best-effort external writes (state doc, schedule doc, audit log)",
	}, []string{"sink"}) // state_doc, schedule_doc, schedule_batch, audit

	// EmergencyActivations tracks EMERGENCY task admissions.
	EmergencyActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pac_emergency_activations_total",
		Help: "Total number of EMERGENCY tasks admitted",
	})

	// PromotionsTotal tracks scheduler-loop promotions of due SCHEDULE tasks.
	PromotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pac_schedule_promotions_total",
		Help: "Total number of SCHEDULE tasks promoted by the scheduler loop",
	})

	// RedisLatency tracks round-trip time of calls made by the Redis
	// store backend, when configured.
	RedisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pac_redis_latency_seconds",
		Help:    "Latency of Redis operations issued by the store backend",
		Buckets: prometheus.DefBuckets,
	})

	// PostgresLatency tracks round-trip time of calls made by the
	// Postgres store backend, when configured.
	PostgresLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pac_postgres_latency_seconds",
		Help:    "Latency of Postgres operations issued by the store backend",
		Buckets: prometheus.DefBuckets,
	})
)
