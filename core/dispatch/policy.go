// Package dispatch holds the policy engine: it assigns pending tasks to
// actor tours under a configurable cost model and time budget.
package dispatch

import (
	"context"
	"math/rand"

	"github.com/kilianp07/dispatchsim/core/distance"
	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/logger"
	"github.com/kilianp07/dispatchsim/core/model"
)

// Request is everything a policy sees during one replan. Actors and Tasks
// are lent by the simulation loop for the duration of the call.
type Request struct {
	Now        float64
	Actors     []*model.Actor
	Tasks      []*model.Task // waiting tasks in scope plus tasks assigned to Actors
	NewArrival bool
	Field      *field.Field
	Provider   *distance.Provider
	Rand       *rand.Rand
}

// Outcome reports what a replan did.
type Outcome struct {
	// Replan asks the loop to treat the next tick as if a task arrived.
	Replan    bool
	Planned   bool
	Committed []int // ids of tasks placed on a path
	Rejected  []int // ids of actors whose replan was refused
	Solver    Metrics
}

// Policy is a dispatch strategy. Plan only returns an error for invariant
// violations; solver problems are reported through the Outcome.
type Policy interface {
	Name() string
	Plan(ctx context.Context, req *Request) (Outcome, error)
}

// LoggerSetter is implemented by policies that log.
type LoggerSetter interface {
	SetLogger(logger.Logger)
}

// waiting counts tasks still waiting for an actor.
func waiting(tasks []*model.Task) int {
	n := 0
	for _, t := range tasks {
		if t.State == model.TaskWaiting {
			n++
		}
	}
	return n
}

// scope keeps the waiting tasks and those assigned to one of actors.
func scope(actors []*model.Actor, tasks []*model.Task) []*model.Task {
	ids := make(map[int]bool, len(actors))
	for _, a := range actors {
		ids[a.ID] = true
	}
	out := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		switch {
		case t.State == model.TaskWaiting:
			out = append(out, t)
		case t.State == model.TaskAssigned && ids[t.Holder]:
			out = append(out, t)
		}
	}
	return out
}
