package scenarios

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kilianp07/dispatchsim/app"
	"github.com/kilianp07/dispatchsim/core/sim"
)

// Check compares the run statistics with the expectations and returns one
// message per mismatch.
func (e Expected) Check(st sim.Stats) []string {
	var out []string
	if e.Serviced != nil && st.Serviced != *e.Serviced {
		out = append(out, fmt.Sprintf("expected %d serviced, got %d", *e.Serviced, st.Serviced))
	}
	if e.Reason != "" && string(st.Reason) != e.Reason {
		out = append(out, fmt.Sprintf("expected stop reason %s, got %s", e.Reason, st.Reason))
	}
	if e.AvgWait != nil && math.Abs(st.AvgWait()-*e.AvgWait) > e.Tolerance {
		out = append(out, fmt.Sprintf("expected average wait %.4f±%.4f, got %.4f", *e.AvgWait, e.Tolerance, st.AvgWait()))
	}
	if e.MaxAvgWait > 0 && st.AvgWait() > e.MaxAvgWait {
		out = append(out, fmt.Sprintf("average wait %.4f above %.4f", st.AvgWait(), e.MaxAvgWait))
	}
	if e.MaxRejections != nil && st.Rejections > *e.MaxRejections {
		out = append(out, fmt.Sprintf("expected at most %d rejections, got %d", *e.MaxRejections, st.Rejections))
	}
	return out
}

// Execute runs the scenario once.
func Execute(ctx context.Context, sc *Scenario) (sim.Stats, error) {
	svc, err := app.New(ctx, sc.Config)
	if err != nil {
		return sim.Stats{}, err
	}
	defer svc.Close()
	return svc.Run(ctx, nil)
}

func RunScenario(t *testing.T, sc *Scenario) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	st, err := Execute(ctx, sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	for _, msg := range sc.Expected.Check(st) {
		t.Errorf("scenario %s: %s", sc.Name, msg)
	}
}
