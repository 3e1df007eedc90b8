package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// geoparsing loop.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesScored   prometheus.Counter
	MessagesDropped  prometheus.Counter

	TimestepsCompleted prometheus.Counter
	TimestepDuration   prometheus.Histogram
	WindowSize         prometheus.Gauge
	DriverRunning      prometheus.Gauge

	ToponymsResolved     prometheus.Counter
	AssignmentsCommitted prometheus.Counter
	CommitErrors         prometheus.Counter

	// Intake metrics.
	IntakeMessages prometheus.Counter
	IntakeInvalid  prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesScored,
		m.MessagesDropped,
		m.TimestepsCompleted,
		m.TimestepDuration,
		m.WindowSize,
		m.DriverRunning,
		m.ToponymsResolved,
		m.AssignmentsCommitted,
		m.CommitErrors,
		m.IntakeMessages,
		m.IntakeInvalid,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the message store.",
		}),
		MessagesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "messages_scored_total",
			Help:      "Total messages that produced at least one toponym candidate.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "messages_dropped_total",
			Help:      "Total messages dropped during scoring (unknown language, no candidates).",
		}),
		TimestepsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "timesteps_completed_total",
			Help:      "Total completed window operations.",
		}),
		TimestepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geotag",
			Name:      "timestep_duration_seconds",
			Help:      "Duration of a complete score-resolve-commit timestep.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		WindowSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geotag",
			Name:      "window_size_messages",
			Help:      "Scored messages currently in the analysis window.",
		}),
		DriverRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geotag",
			Name:      "driver_running",
			Help:      "1 while the window driver is active.",
		}),
		ToponymsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "toponyms_resolved_total",
			Help:      "Total surface forms resolved to a location across timesteps.",
		}),
		AssignmentsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "assignments_committed_total",
			Help:      "Total per-message location assignments written to the sink.",
		}),
		CommitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "commit_errors_total",
			Help:      "Total failed commit attempts.",
		}),
		IntakeMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "intake_messages_total",
			Help:      "Total raw messages consumed from the intake topic.",
		}),
		IntakeInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geotag",
			Name:      "intake_invalid_total",
			Help:      "Total malformed intake payloads skipped.",
		}),
	}
}
