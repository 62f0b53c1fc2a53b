package model

import "fmt"

// InvariantError reports a broken task/actor invariant such as double
// service. It is never recovered from: the simulation aborts with it.
type InvariantError struct {
	TaskID  int
	ActorID int
	SimTime float64
	Op      string
	From    TaskState
	To      TaskState
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation at t=%.3f: %s task %d (actor %d): %s -> %s",
		e.SimTime, e.Op, e.TaskID, e.ActorID, e.From, e.To)
}
