package dispatch

import (
	"fmt"

	"github.com/kilianp07/dispatchsim/core/model"
)

// Trigger decides when a policy replans and which actors take part.
type Trigger int

const (
	// OnArrival replans every actor when a task arrived this tick.
	OnArrival Trigger = iota
	// OnIdle replans idle actors whenever one exists.
	OnIdle
	// OnIdlePending replans idle actors when at least one task waits.
	OnIdlePending
	// OnArrivalOrIdlePending replans every actor on arrival, or when an
	// actor is idle while tasks wait.
	OnArrivalOrIdlePending
	// SkipBusy replans idle actors on every tick with waiting work.
	SkipBusy
)

var triggerNames = map[Trigger]string{
	OnArrival:              "arrival",
	OnIdle:                 "idle",
	OnIdlePending:          "idle_pending",
	OnArrivalOrIdlePending: "arrival_or_idle_pending",
	SkipBusy:               "skip_busy",
}

func (t Trigger) String() string {
	if s, ok := triggerNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Trigger(%d)", int(t))
}

// ParseTrigger maps a config name to a Trigger.
func ParseTrigger(s string) (Trigger, error) {
	for t, name := range triggerNames {
		if name == s {
			return t, nil
		}
	}
	return OnArrival, fmt.Errorf("unknown trigger %q", s)
}

// Select returns the actors to replan for req, or nil when the trigger does
// not fire.
func (t Trigger) Select(req *Request) []*model.Actor {
	var idle []*model.Actor
	for _, a := range req.Actors {
		if !a.Busy() {
			idle = append(idle, a)
		}
	}
	pending := waiting(req.Tasks) > 0

	switch t {
	case OnArrival:
		if req.NewArrival {
			return req.Actors
		}
	case OnIdle:
		return idle
	case OnIdlePending, SkipBusy:
		if pending {
			return idle
		}
	case OnArrivalOrIdlePending:
		if req.NewArrival || (pending && len(idle) > 0) {
			return req.Actors
		}
	}
	return nil
}
