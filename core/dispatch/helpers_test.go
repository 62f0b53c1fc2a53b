package dispatch

import (
	"math/rand"
	"testing"

	"github.com/kilianp07/dispatchsim/core/distance"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

func newTask(id int, x, y, arrival float64) *model.Task {
	t := model.NewTask(id, orb.Point{x, y}, arrival)
	return &t
}

func newActor(id int, x, y float64) *model.Actor {
	return model.NewActor(id, orb.Point{x, y}, model.NoNode, 1, model.MotionDirect)
}

func newRequest(now float64, actors []*model.Actor, tasks []*model.Task, seed int64) *Request {
	return &Request{
		Now:        now,
		Actors:     actors,
		Tasks:      tasks,
		NewArrival: true,
		Provider:   distance.NewEuclidean(),
		Rand:       rand.New(rand.NewSource(seed)),
	}
}

func problemFor(t *testing.T, req *Request, obj Objective) *Problem {
	t.Helper()
	p, err := buildProblem(req, req.Actors, req.Tasks, obj)
	if err != nil {
		t.Fatalf("build problem: %v", err)
	}
	return p
}

// pathIDs lists the task ids on an actor's path, depot included as -1.
func pathIDs(a *model.Actor) []int {
	ids := make([]int, len(a.Path))
	for i, e := range a.Path {
		ids[i] = e.Task.ID
	}
	return ids
}

func gamma(v float64) *float64 { return &v }
