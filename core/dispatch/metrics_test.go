package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	// touch metrics so they are exported
	observeSolver("hybrid", Metrics{Iterations: 10, Stop: StopTimeout})
	replanRejections.WithLabelValues("hybrid").Inc()
	backendFailures.WithLabelValues("exact").Inc()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[*mf.Name] = true
	}
	expected := []string{
		"dispatch_solver_iterations",
		"dispatch_solver_duration_seconds",
		"dispatch_solver_timeouts_total",
		"dispatch_replans_rejected_total",
		"dispatch_backend_failures_total",
	}
	for _, n := range expected {
		if !names[n] {
			t.Errorf("metric %s not registered", n)
		}
	}
}
