package model

import (
	"fmt"

	"github.com/paulmach/orb"
)

// TaskState is the lifecycle position of a task.
type TaskState int

const (
	TaskWaiting TaskState = iota
	TaskAssigned
	TaskInService
	TaskServiced
)

func (s TaskState) String() string {
	switch s {
	case TaskWaiting:
		return "WAITING"
	case TaskAssigned:
		return "ASSIGNED"
	case TaskInService:
		return "IN_SERVICE"
	case TaskServiced:
		return "SERVICED"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

const (
	// DepotID identifies the synthetic return-to-depot task.
	DepotID = -1
	// NoActor marks a task nobody holds.
	NoActor = -1
	// NoNode marks a location that is not a network node.
	NoNode = -1
)

// Task is one service request.
type Task struct {
	ID          int
	Location    orb.Point
	Node        int     // network node index, NoNode in Euclidean mode
	Arrival     float64 // simulated arrival time, negative for pre-seeded tasks
	InitialWait float64 // wait accrued before the clock started
	Sector      int
	ServiceTime float64 // dwell once the actor is on site
	Completed   float64 // completion time, -1 until serviced
	State       TaskState
	Holder      int // actor holding the task, NoActor while waiting
}

// NewTask returns a waiting task in Euclidean space.
func NewTask(id int, loc orb.Point, arrival float64) Task {
	return Task{
		ID:        id,
		Location:  loc,
		Node:      NoNode,
		Arrival:   arrival,
		Completed: -1,
		Holder:    NoActor,
	}
}

// NewDepot returns the return-to-depot sentinel for an actor.
func NewDepot(actor int, loc orb.Point, node int) *Task {
	return &Task{
		ID:        DepotID,
		Location:  loc,
		Node:      node,
		Completed: -1,
		Holder:    actor,
	}
}

// IsDepot reports whether t is a depot sentinel.
func (t *Task) IsDepot() bool { return t.ID < 0 }

// Pending reports whether the task can still be (re)planned.
func (t *Task) Pending() bool {
	return t.State == TaskWaiting || t.State == TaskAssigned
}

// AccruedWait is the wait the task has built up by now.
func (t *Task) AccruedWait(now float64) float64 {
	return now - t.Arrival + t.InitialWait
}

// Assign places a waiting task on an actor's committed path.
func (t *Task) Assign(actor int, now float64) error {
	if t.State != TaskWaiting {
		return t.fault(actor, now, "assign", TaskAssigned)
	}
	t.State = TaskAssigned
	t.Holder = actor
	return nil
}

// Reassign moves an assigned task to another actor within one joint replan.
func (t *Task) Reassign(actor int, now float64) error {
	if t.State != TaskAssigned {
		return t.fault(actor, now, "reassign", TaskAssigned)
	}
	t.Holder = actor
	return nil
}

// Commit assigns or reassigns t depending on its current state.
func (t *Task) Commit(actor int, now float64) error {
	if t.State == TaskAssigned {
		return t.Reassign(actor, now)
	}
	return t.Assign(actor, now)
}

// Begin marks the start of service by the holding actor.
func (t *Task) Begin(actor int, now float64) error {
	if t.State != TaskAssigned || t.Holder != actor {
		return t.fault(actor, now, "begin service", TaskInService)
	}
	t.State = TaskInService
	return nil
}

// Complete stamps the completion time. Completing twice is a fault.
func (t *Task) Complete(now float64) error {
	if t.State != TaskInService {
		return t.fault(t.Holder, now, "complete", TaskServiced)
	}
	t.State = TaskServiced
	t.Completed = now
	return nil
}

// Wait returns the realised wait of a serviced task.
func (t *Task) Wait() (float64, error) {
	if t.State != TaskServiced {
		return 0, t.fault(t.Holder, t.Completed, "read wait", t.State)
	}
	return t.Completed - t.Arrival + t.InitialWait, nil
}

func (t *Task) fault(actor int, now float64, op string, to TaskState) error {
	return &InvariantError{
		TaskID:  t.ID,
		ActorID: actor,
		SimTime: now,
		Op:      op,
		From:    t.State,
		To:      to,
	}
}
