// Package metrics holds the Prometheus collectors for convergence runs, gate
// decisions, remote commands and node provisioning.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the registry all rsjoin collectors are registered with.
var Registry = prometheus.NewRegistry()

var (
	// Convergence metrics
	convergenceRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsjoin",
			Subsystem: "convergence",
			Name:      "runs_total",
			Help:      "Total number of convergence runs by action and result",
		},
		[]string{"cluster", "action", "result"},
	)

	convergenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rsjoin",
			Subsystem: "convergence",
			Name:      "duration_seconds",
			Help:      "Duration of convergence runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		},
		[]string{"cluster"},
	)

	// Gate metrics
	gateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsjoin",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total number of admission decisions by outcome",
		},
		[]string{"cluster", "decision"},
	)

	// Remote command metrics
	commandOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsjoin",
			Subsystem: "command",
			Name:      "outcomes_total",
			Help:      "Total number of per-target remote command outcomes by kind and status",
		},
		[]string{"kind", "status"},
	)

	// Provisioning metrics
	provisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsjoin",
			Name:      "provision_total",
			Help:      "Total number of node provisioning attempts by role and result",
		},
		[]string{"role", "result"},
	)

	volumesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsjoin",
			Name:      "volumes_created_total",
			Help:      "Total number of data volumes restored from snapshot",
		},
		[]string{"role"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		convergenceRunsTotal,
		convergenceDuration,
		gateDecisionsTotal,
		commandOutcomesTotal,
		provisionTotal,
		volumesCreatedTotal,
	)
}

// RecordConvergence records the outcome of one convergence run.
func RecordConvergence(cluster, action, result string, seconds float64) {
	convergenceRunsTotal.WithLabelValues(cluster, action, result).Inc()
	convergenceDuration.WithLabelValues(cluster).Observe(seconds)
}

// RecordGateDecision records whether a trigger started a run or was deferred.
func RecordGateDecision(cluster, decision string) {
	gateDecisionsTotal.WithLabelValues(cluster, decision).Inc()
}

// RecordCommandOutcome records the terminal status of a command on one target.
func RecordCommandOutcome(kind, status string) {
	commandOutcomesTotal.WithLabelValues(kind, status).Inc()
}

// RecordProvision records a provisioning result for a role.
func RecordProvision(role, result string) {
	provisionTotal.WithLabelValues(role, result).Inc()
}

// RecordVolumeCreated records a data volume restored from snapshot.
func RecordVolumeCreated(role string) {
	volumesCreatedTotal.WithLabelValues(role).Inc()
}
