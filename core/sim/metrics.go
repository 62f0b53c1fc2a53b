package sim

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tasksServiced *prometheus.CounterVec
	taskWait      *prometheus.HistogramVec
	queueLength   *prometheus.GaugeVec
	simClock      *prometheus.GaugeVec
	replans       *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.GaugeVec, *prometheus.GaugeVec, *prometheus.CounterVec) {
	served := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sim_tasks_serviced_total",
			Help: "Tasks completed by actors",
		},
		[]string{"policy"},
	)
	wait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sim_task_wait",
			Help:    "Realised task wait in simulated time units",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"policy"},
	)
	queue := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sim_open_tasks",
			Help: "Tasks arrived but not yet serviced",
		},
		[]string{"policy"},
	)
	clock := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sim_time",
			Help: "Current simulated time",
		},
		[]string{"policy"},
	)
	plans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sim_replans_total",
			Help: "Policy calls that produced a plan",
		},
		[]string{"policy"},
	)
	return served, wait, queue, clock, plans
}

func init() {
	tasksServiced, taskWait, queueLength, simClock, replans = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers simulation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(tasksServiced, taskWait, queueLength, simClock, replans)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	tasksServiced, taskWait, queueLength, simClock, replans = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
