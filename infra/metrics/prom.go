package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
)

// PromSink records completions and replans in Prometheus metrics.
type PromSink struct {
	completions *prometheus.CounterVec
	wait        *prometheus.HistogramVec
	replans     *prometheus.CounterVec
	avgWait     *prometheus.GaugeVec
	maxWait     *prometheus.GaugeVec
	travel      *prometheus.GaugeVec
}

// NewPromSink registers sink metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatchsim_completions_total",
			Help: "Tasks serviced per actor",
		}, []string{"actor"}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatchsim_completion_wait",
			Help:    "Realised wait per serviced task in simulated time units",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"sector"}),
		replans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatchsim_replans_total",
			Help: "Replans by policy and solver stop reason",
		}, []string{"policy", "stop"}),
		avgWait: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatchsim_run_avg_wait",
			Help: "Average wait of the last finished run",
		}, []string{"policy"}),
		maxWait: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatchsim_run_max_wait",
			Help: "Maximum wait of the last finished run",
		}, []string{"policy"}),
		travel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatchsim_run_travel",
			Help: "Total distance travelled in the last finished run",
		}, []string{"policy"}),
	}
	var err error
	if s.completions, err = register(reg, s.completions); err != nil {
		return nil, err
	}
	if s.wait, err = register(reg, s.wait); err != nil {
		return nil, err
	}
	if s.replans, err = register(reg, s.replans); err != nil {
		return nil, err
	}
	if s.avgWait, err = register(reg, s.avgWait); err != nil {
		return nil, err
	}
	if s.maxWait, err = register(reg, s.maxWait); err != nil {
		return nil, err
	}
	if s.travel, err = register(reg, s.travel); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor, so several sinks can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCompletion counts the task and observes its wait.
func (s *PromSink) RecordCompletion(ev coremetrics.CompletionEvent) error {
	s.completions.WithLabelValues(strconv.Itoa(ev.Actor)).Inc()
	s.wait.WithLabelValues(strconv.Itoa(ev.Sector)).Observe(ev.Wait)
	return nil
}

// RecordReplan counts the replan.
func (s *PromSink) RecordReplan(ev coremetrics.ReplanEvent) error {
	stop := ev.Stop
	if stop == "" {
		stop = "none"
	}
	s.replans.WithLabelValues(ev.Policy, stop).Inc()
	return nil
}

// RecordRunSummary publishes the final run figures.
func (s *PromSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	s.avgWait.WithLabelValues(sum.Policy).Set(sum.AvgWait)
	s.maxWait.WithLabelValues(sum.Policy).Set(sum.MaxWait)
	s.travel.WithLabelValues(sum.Policy).Set(sum.TotalTravel)
	return nil
}
