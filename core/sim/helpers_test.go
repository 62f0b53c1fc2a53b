package sim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchsim/core/dispatch"
	"github.com/kilianp07/dispatchsim/core/factory"
	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/metrics"
	"github.com/kilianp07/dispatchsim/core/model"
)

var unitSquare = []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// fixedGen replays a prepared task list.
type fixedGen struct {
	tasks []model.Task
}

func (g *fixedGen) Reset(*rand.Rand) {}
func (g *fixedGen) Euclidean() bool  { return true }
func (g *fixedGen) DrawTasks(float64, *field.Field) ([]model.Task, float64, error) {
	out := make([]model.Task, len(g.tasks))
	copy(out, g.tasks)
	return out, 0, nil
}

func task(id int, x, y, arrival float64) model.Task {
	return model.NewTask(id, orb.Point{x, y}, arrival)
}

func squareField(t *testing.T, n int) *field.Field {
	t.Helper()
	f, err := field.New(unitSquare, orb.Point{0.5, 0.5}, n)
	require.NoError(t, err)
	return f
}

func policy(t *testing.T, name string, conf map[string]any) dispatch.Policy {
	t.Helper()
	if conf == nil {
		conf = map[string]any{}
	}
	if _, ok := conf["max_solver_time"]; !ok && name != "random" {
		conf["max_solver_time"] = 0.2
	}
	p, err := dispatch.Registry.Create(factory.ModuleConfig{Type: name, Conf: conf})
	require.NoError(t, err)
	return p
}

// recordingSink keeps every event it receives.
type recordingSink struct {
	completions []metrics.CompletionEvent
	replans     []metrics.ReplanEvent
	snapshots   []metrics.ActorStateEvent
	summaries   []metrics.RunSummary
}

func (r *recordingSink) RecordCompletion(ev metrics.CompletionEvent) error {
	r.completions = append(r.completions, ev)
	return nil
}

func (r *recordingSink) RecordReplan(ev metrics.ReplanEvent) error {
	r.replans = append(r.replans, ev)
	return nil
}

func (r *recordingSink) RecordActorState(ev metrics.ActorStateEvent) error {
	r.snapshots = append(r.snapshots, ev)
	return nil
}

func (r *recordingSink) RecordRunSummary(s metrics.RunSummary) error {
	r.summaries = append(r.summaries, s)
	return nil
}

// captureMonitor records captured errors.
type captureMonitor struct {
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}
func (c *captureMonitor) Recover()            {}
func (c *captureMonitor) Flush(time.Duration) {}

func runToEnd(t *testing.T, s *Simulation) Stats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := s.Run(ctx)
	require.NoError(t, err)
	return st
}
