package sandbox

import "github.com/prometheus/client_golang/prometheus"

// Execution outcome label values.
const (
	outcomeCompleted   = "completed"
	outcomeTimedOut    = "timed_out"
	outcomeFailed      = "failed"
	outcomeRejected    = "rejected"
	outcomeUnsupported = "unsupported"
)

// Kill result label values.
const (
	killSucceeded = "succeeded"
	killFailed    = "failed"
)

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coderunner_executions_total",
			Help: "Total number of execute calls by language and outcome.",
		},
		[]string{"language", "outcome"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coderunner_execution_duration_seconds",
			Help:    "Wall-clock time from sandbox launch to outcome, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"language"},
	)

	activeSandboxes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coderunner_active_sandboxes",
			Help: "Number of sandboxes currently owned by an execution.",
		},
	)

	killsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coderunner_sandbox_kills_total",
			Help: "Total number of forced sandbox terminations by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(executionDuration)
	prometheus.MustRegister(activeSandboxes)
	prometheus.MustRegister(killsTotal)

	// Pre-initialize kill results so they appear in /metrics
	killsTotal.WithLabelValues(killSucceeded)
	killsTotal.WithLabelValues(killFailed)
}
