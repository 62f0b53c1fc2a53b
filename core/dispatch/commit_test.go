package dispatch

import (
	"testing"

	"github.com/kilianp07/dispatchsim/core/logger"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdRoundsHalfEven(t *testing.T) {
	assert.Equal(t, 2, Threshold(0.5, 4))
	assert.Equal(t, 2, Threshold(0.5, 5))
	assert.Equal(t, 4, Threshold(0.5, 7))
	assert.Equal(t, 0, Threshold(0, 9))
	assert.Equal(t, 9, Threshold(1, 9))
}

// busyActor returns an actor mid-tour holding tasks 1..4.
func busyActor(t *testing.T) (*model.Actor, []*model.Task) {
	t.Helper()
	a := newActor(0, 0, 0)
	var held []*model.Task
	var path []model.PathEntry
	for i := 1; i <= 4; i++ {
		tk := newTask(i, float64(i), 0, 0)
		require.NoError(t, tk.Assign(0, 0))
		held = append(held, tk)
		path = append(path, model.PathEntry{Task: tk})
	}
	a.SetPath(append(path, model.PathEntry{Task: a.Depot()}))
	return a, held
}

func TestAdmissionRejectsDeepArrival(t *testing.T) {
	a, held := busyActor(t)
	before := pathIDs(a)
	fresh := newTask(5, 10, 0, 1)
	tasks := append(append([]*model.Task{}, held...), fresh)
	req := newRequest(1, []*model.Actor{a}, tasks, 1)
	p := problemFor(t, req, Objective{Mode: CostWait})

	// proposed order puts the new arrival at stop 4 of 5
	sol := Solution{Tours: [][]int{{0, 1, 2, 3, 5, 4}}}
	out, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 1, gamma: 0.5}, logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, out.Rejected)
	assert.True(t, out.Replan)
	assert.Equal(t, before, pathIDs(a))
	assert.Equal(t, model.TaskWaiting, fresh.State)
}

func TestAdmissionAcceptsWithinThreshold(t *testing.T) {
	a, held := busyActor(t)
	fresh := newTask(5, 0.5, 0, 1)
	tasks := append(append([]*model.Task{}, held...), fresh)
	req := newRequest(1, []*model.Actor{a}, tasks, 1)
	p := problemFor(t, req, Objective{Mode: CostWait})

	sol := Solution{Tours: [][]int{{0, 5, 1, 2, 3, 4}}}
	out, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 1, gamma: 0.5}, logger.Nop{})
	require.NoError(t, err)
	assert.Empty(t, out.Rejected)
	assert.Equal(t, []int{5, 1, 2, 3, 4, model.DepotID}, pathIDs(a))
	assert.Equal(t, model.TaskAssigned, fresh.State)
	assert.Equal(t, 0.5, a.Path[0].LegCost)
	assert.True(t, a.Path[len(a.Path)-1].HasCost)
}

func TestIdleActorAlwaysAdmitted(t *testing.T) {
	a := newActor(0, 0, 0)
	var tasks []*model.Task
	for i := 1; i <= 4; i++ {
		tasks = append(tasks, newTask(i, float64(i), 0, 0))
	}
	req := newRequest(0, []*model.Actor{a}, tasks, 1)
	p := problemFor(t, req, Objective{Mode: CostDistance})
	sol := Solution{Tours: [][]int{{0, 1, 2, 3, 4}}}
	out, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 1, gamma: 0}, logger.Nop{})
	require.NoError(t, err)
	assert.Empty(t, out.Rejected)
	assert.Len(t, out.Committed, 4)
}

func TestEtaWindowLeavesRestWaiting(t *testing.T) {
	a := newActor(0, 0, 0)
	var tasks []*model.Task
	for i := 1; i <= 4; i++ {
		tasks = append(tasks, newTask(i, float64(i), 0, 0))
	}
	req := newRequest(0, []*model.Actor{a}, tasks, 1)
	p := problemFor(t, req, Objective{Mode: CostDistance})
	sol := Solution{Tours: [][]int{{0, 1, 2, 3, 4}}}
	out, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 0.5, etaFirst: true, gamma: 1}, logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, out.Committed)
	assert.Equal(t, []int{1, 2, model.DepotID}, pathIDs(a))
	assert.Equal(t, model.TaskWaiting, tasks[2].State)
	assert.Equal(t, model.TaskWaiting, tasks[3].State)
	assert.Len(t, a.CompletePath, 6, "snapshot keeps the full tour")
}

func TestEtaWindowReversedTowardActor(t *testing.T) {
	a := newActor(0, 10, 0)
	var tasks []*model.Task
	for i := 1; i <= 4; i++ {
		tasks = append(tasks, newTask(i, float64(i), 0, 0))
	}
	req := newRequest(0, []*model.Actor{a}, tasks, 1)
	p := problemFor(t, req, Objective{Mode: CostDistance})
	sol := Solution{Tours: [][]int{{0, 1, 2, 3, 4}}}
	_, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 0.5, etaFirst: true, gamma: 1}, logger.Nop{})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, model.DepotID}, pathIDs(a))
}

func TestFullTourKeepsOptimizedOrder(t *testing.T) {
	a := newActor(0, 10, 0)
	var tasks []*model.Task
	for i := 1; i <= 4; i++ {
		tasks = append(tasks, newTask(i, float64(i), 0, 0))
	}
	req := newRequest(0, []*model.Actor{a}, tasks, 1)
	p := problemFor(t, req, Objective{Mode: CostDistance})
	sol := Solution{Tours: [][]int{{0, 1, 2, 3, 4}}}
	_, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 1, gamma: 1}, logger.Nop{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, model.DepotID}, pathIDs(a))
}

func TestAssignedTasksFollowWindow(t *testing.T) {
	a, held := busyActor(t)
	req := newRequest(1, []*model.Actor{a}, held, 1)
	p := problemFor(t, req, Objective{Mode: CostDistance})
	sol := Solution{Tours: [][]int{{0, 1, 2, 3, 4}}}
	_, err := commit(req, req.Actors, p, sol, commitOptions{policy: "test", eta: 0.25, etaFirst: true, gamma: 1}, logger.Nop{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, model.DepotID}, pathIDs(a))
}
