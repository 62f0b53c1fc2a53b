package dispatch

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func permutations(xs []int, visit func([]int)) {
	var rec func(int)
	rec = func(k int) {
		if k == len(xs) {
			visit(xs)
			return
		}
		for i := k; i < len(xs); i++ {
			xs[k], xs[i] = xs[i], xs[k]
			rec(k + 1)
			xs[k], xs[i] = xs[i], xs[k]
		}
	}
	rec(0)
}

func bruteForce(p *Problem) float64 {
	nodes := make([]int, len(p.M.Tasks))
	for i := range nodes {
		nodes[i] = i + 1
	}
	best := math.Inf(1)
	permutations(nodes, func(perm []int) {
		tour := append([]int{0}, perm...)
		best = math.Min(best, p.TourCost(tour))
	})
	return best
}

func TestHeldKarpMatchesBruteForce(t *testing.T) {
	for _, mode := range []CostMode{CostDistance, CostWait} {
		for seed := int64(1); seed <= 5; seed++ {
			rng := rand.New(rand.NewSource(seed))
			a := newActor(0, rng.Float64(), rng.Float64())
			var tasks []*model.Task
			for i := 1; i <= 6; i++ {
				tk := newTask(i, rng.Float64()*4, rng.Float64()*4, rng.Float64()*3)
				tk.ServiceTime = rng.Float64()
				tasks = append(tasks, tk)
			}
			req := newRequest(3, []*model.Actor{a}, tasks, seed)
			p := problemFor(t, req, Objective{Mode: mode})

			tour, err := HeldKarp{}.Solve(context.Background(), p)
			require.NoError(t, err)
			require.NoError(t, validTour(tour, p.M.Len()))
			assert.InDelta(t, bruteForce(p), p.TourCost(tour), 1e-9, "%s seed %d", mode, seed)
		}
	}
}

func TestHeldKarpErrors(t *testing.T) {
	a := newActor(0, 0, 0)
	tasks := []*model.Task{newTask(1, 1, 0, 0), newTask(2, 2, 0, 0), newTask(3, 3, 0, 0)}
	req := newRequest(0, []*model.Actor{a}, tasks, 1)

	p := problemFor(t, req, Objective{Mode: CostWaitPower, Exponent: 2})
	_, err := HeldKarp{}.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrUnsupportedCost)

	p = problemFor(t, req, Objective{Mode: CostDistance})
	_, err = HeldKarp{MaxNodes: 2}.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrTooLarge)

	req = newRequest(0, []*model.Actor{a, newActor(1, 1, 1)}, tasks, 1)
	p = problemFor(t, req, Objective{Mode: CostDistance})
	_, err = HeldKarp{}.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrMultiActor)
}

type mockSolver struct {
	mock.Mock
}

func (m *mockSolver) Solve(ctx context.Context, p *Problem) ([]int, error) {
	args := m.Called(ctx, p)
	tour, _ := args.Get(0).([]int)
	return tour, args.Error(1)
}

func TestExactBackendFailureLeavesTasksWaiting(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	t.Cleanup(func() { ResetMetrics(nil) })

	s := &mockSolver{}
	s.On("Solve", mock.Anything, mock.Anything).Return(nil, errors.New("solver crashed"))
	p, err := NewExact(ExactConfig{Trigger: "arrival"}, s)
	require.NoError(t, err)

	a := newActor(0, 0, 0)
	tasks := []*model.Task{newTask(1, 1, 0, 0), newTask(2, 2, 0, 0)}
	out, err := p.Plan(context.Background(), newRequest(0, []*model.Actor{a}, tasks, 1))
	require.NoError(t, err)

	assert.True(t, out.Replan)
	assert.Empty(t, a.Path)
	for _, tk := range tasks {
		assert.Equal(t, model.TaskWaiting, tk.State)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(backendFailures.WithLabelValues("exact")))
	s.AssertExpectations(t)
}

func TestExactBackendRejectsBadTour(t *testing.T) {
	ResetMetrics(nil)
	s := &mockSolver{}
	s.On("Solve", mock.Anything, mock.Anything).Return([]int{0, 1, 1}, nil)
	p, err := NewExact(ExactConfig{Trigger: "arrival"}, s)
	require.NoError(t, err)

	a := newActor(0, 0, 0)
	tasks := []*model.Task{newTask(1, 1, 0, 0), newTask(2, 2, 0, 0)}
	out, err := p.Plan(context.Background(), newRequest(0, []*model.Actor{a}, tasks, 1))
	require.NoError(t, err)
	assert.True(t, out.Replan)
	assert.Equal(t, model.TaskWaiting, tasks[0].State)
}

func TestExactMultiActorNotFatal(t *testing.T) {
	ResetMetrics(nil)
	p, err := NewExact(ExactConfig{Trigger: "arrival"}, nil)
	require.NoError(t, err)
	actors := []*model.Actor{newActor(0, 0, 0), newActor(1, 1, 1)}
	out, err := p.Plan(context.Background(), newRequest(0, actors, []*model.Task{newTask(1, 1, 0, 0)}, 1))
	require.NoError(t, err)
	assert.True(t, out.Replan)
}

func TestExactPolicyCommits(t *testing.T) {
	ResetMetrics(nil)
	p, err := NewExact(ExactConfig{Cost: "distance", Trigger: "arrival"}, nil)
	require.NoError(t, err)
	a := newActor(0, 0, 0)
	tasks := []*model.Task{newTask(1, 3, 0, 0), newTask(2, 1, 0, 0), newTask(3, 2, 0, 0)}
	out, err := p.Plan(context.Background(), newRequest(0, []*model.Actor{a}, tasks, 1))
	require.NoError(t, err)
	assert.False(t, out.Replan)
	assert.Equal(t, []int{2, 3, 1, model.DepotID}, pathIDs(a))
	assert.Equal(t, 3.0, out.Solver.BestCost)
}
