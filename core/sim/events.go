package sim

// EventKind names a simulation event.
type EventKind string

const (
	TaskActivated   EventKind = "task_activated"
	TaskServiced    EventKind = "task_serviced"
	ReplanCompleted EventKind = "replan_completed"
	ReplanRejected  EventKind = "replan_rejected"
	RunFinished     EventKind = "run_finished"
)

// Event is published on the bus as the run progresses. Fields not relevant
// to a kind are left zero.
type Event struct {
	Kind    EventKind `json:"kind"`
	RunID   string    `json:"run_id"`
	SimTime float64   `json:"sim_time"`
	TaskID  int       `json:"task_id,omitempty"`
	Actor   int       `json:"actor,omitempty"`
	Sector  int       `json:"sector,omitempty"`
	Wait    float64   `json:"wait,omitempty"`
	// Committed counts tasks placed on paths by a replan.
	Committed int    `json:"committed,omitempty"`
	Stats     *Stats `json:"stats,omitempty"`
}
