package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	solverIterations *prometheus.HistogramVec
	solverDuration   *prometheus.HistogramVec
	solverTimeouts   *prometheus.CounterVec
	replanRejections *prometheus.CounterVec
	backendFailures  *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	iter := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_solver_iterations",
			Help:    "Local search iterations per replan",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"policy"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_solver_duration_seconds",
			Help:    "Wall clock time spent in the solver per replan",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"policy"},
	)
	to := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_solver_timeouts_total",
			Help: "Searches stopped by the time budget",
		},
		[]string{"policy"},
	)
	rej := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_replans_rejected_total",
			Help: "Actor replans refused by admission control",
		},
		[]string{"policy"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_backend_failures_total",
			Help: "Exact backend calls that failed",
		},
		[]string{"policy"},
	)
	return iter, dur, to, rej, fail
}

func init() {
	solverIterations, solverDuration, solverTimeouts, replanRejections, backendFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solverIterations, solverDuration, solverTimeouts, replanRejections, backendFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solverIterations, solverDuration, solverTimeouts, replanRejections, backendFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observeSolver(policy string, m Metrics) {
	solverIterations.WithLabelValues(policy).Observe(float64(m.Iterations))
	solverDuration.WithLabelValues(policy).Observe(m.Elapsed.Seconds())
	if m.Stop == StopTimeout {
		solverTimeouts.WithLabelValues(policy).Inc()
	}
}
