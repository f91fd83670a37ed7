package bridge

import "github.com/prometheus/client_golang/prometheus"

var (
	childrenStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mlcshim",
			Subsystem: "bridge",
			Name:      "children_started_total",
			Help:      "Total CLI processes started",
		},
	)

	childrenKilled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mlcshim",
			Subsystem: "bridge",
			Name:      "children_killed_total",
			Help:      "CLI process groups killed before exiting on their own",
		},
	)

	streamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlcshim",
			Subsystem: "bridge",
			Name:      "streams_total",
			Help:      "Completed chat streams by outcome",
		},
		[]string{"outcome"},
	)

	tokensEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mlcshim",
			Subsystem: "bridge",
			Name:      "tokens_emitted_total",
			Help:      "Total answer tokens sent to clients",
		},
	)

	childDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mlcshim",
			Subsystem: "bridge",
			Name:      "child_duration_seconds",
			Help:      "Lifetime of CLI processes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	inflightChildren = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mlcshim",
			Subsystem: "bridge",
			Name:      "inflight_children",
			Help:      "CLI processes currently running",
		},
	)
)

// Stream outcomes.
const (
	outcomeDone       = "done"
	outcomeTimeout    = "timeout"
	outcomeSpawnError = "spawn_error"
	outcomeAborted    = "aborted"
)

func init() {
	prometheus.MustRegister(childrenStarted, childrenKilled, streamsTotal, tokensEmitted, childDuration, inflightChildren)
}
