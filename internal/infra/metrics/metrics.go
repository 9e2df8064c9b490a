// Package metrics provides Prometheus metrics for uitrail collection runs:
// counters, gauges and histograms for trajectories, steps, retries, queue
// depth and slot health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Trajectories ───────────────────────────────────────────────────────────

// TrajectoriesCommitted counts committed trajectories by outcome.
var TrajectoriesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "uitrail",
	Name:      "trajectories_committed_total",
	Help:      "Total committed trajectories by outcome.",
}, []string{"outcome"})

// TrajectoriesDiscarded counts attempts abandoned before commit.
var TrajectoriesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "uitrail",
	Name:      "trajectories_discarded_total",
	Help:      "Total trajectory attempts discarded before commit.",
})

// TrajectoryDuration tracks wall-clock time per committed trajectory.
var TrajectoryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "uitrail",
	Name:      "trajectory_duration_seconds",
	Help:      "Wall-clock duration per committed trajectory.",
	Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
})

// ─── Steps ──────────────────────────────────────────────────────────────────

// StepsExecuted counts executed steps by action type.
var StepsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "uitrail",
	Name:      "steps_executed_total",
	Help:      "Total executed steps by action type.",
}, []string{"action"})

// StepLatency tracks snapshot-plus-action time per step.
var StepLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "uitrail",
	Name:      "step_latency_seconds",
	Help:      "Time to capture a snapshot and execute one action.",
	Buckets:   prometheus.DefBuckets,
})

// ActionRetries counts step-level retries after a retryable failure.
var ActionRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "uitrail",
	Name:      "action_retries_total",
	Help:      "Total step-level action retries.",
})

// ─── Queue & Slots ──────────────────────────────────────────────────────────

// QueueDepth tracks pending tasks in the shared queue.
var QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "uitrail",
	Name:      "queue_depth",
	Help:      "Number of pending tasks in the shared queue.",
})

// TasksRequeued counts tasks re-enqueued after a slot failure.
var TasksRequeued = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "uitrail",
	Name:      "tasks_requeued_total",
	Help:      "Total tasks re-enqueued after a worker slot failure.",
})

// SlotHealth tracks slot health per slot index (1=healthy, 0=unhealthy).
var SlotHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "uitrail",
	Name:      "slot_health",
	Help:      "Worker slot health (1=healthy, 0=unhealthy).",
}, []string{"slot"})
