package sim

import "github.com/kilianp07/dispatchsim/core/metrics"

// StopReason tells why a run ended.
type StopReason string

const (
	StopNone      StopReason = ""
	StopMaxTime   StopReason = "max_time"
	StopMaxTasks  StopReason = "max_tasks"
	StopExhausted StopReason = "exhausted"
	StopCanceled  StopReason = "canceled"
)

// Stats accumulates over a run.
type Stats struct {
	RunID        string     `json:"run_id"`
	Policy       string     `json:"policy"`
	Rate         float64    `json:"rate"`
	SimTime      float64    `json:"sim_time"`
	Ticks        int        `json:"ticks"`
	Generated    int        `json:"generated"`
	FirstArrival float64    `json:"first_arrival"`
	Activated    int        `json:"activated"`
	Serviced     int        `json:"serviced"`
	WaitSum      float64    `json:"wait_sum"`
	MaxWait      float64    `json:"max_wait"`
	TotalTravel  float64    `json:"total_travel"`
	MaxTravel    float64    `json:"max_travel"`
	MaxQueue     int        `json:"max_queue"`     // most open tasks seen at once
	MaxQueueAge  float64    `json:"max_queue_age"` // oldest open task at the last tick
	Replans      int        `json:"replans"`
	Rejections   int        `json:"rejections"`
	Reason       StopReason `json:"reason"`
}

// AvgWait is the mean realised wait of serviced tasks.
func (s Stats) AvgWait() float64 {
	if s.Serviced == 0 {
		return 0
	}
	return s.WaitSum / float64(s.Serviced)
}

// Summary converts the stats for metric sinks.
func (s Stats) Summary() metrics.RunSummary {
	return metrics.RunSummary{
		RunID:       s.RunID,
		Policy:      s.Policy,
		Rate:        s.Rate,
		SimTime:     s.SimTime,
		Serviced:    s.Serviced,
		AvgWait:     s.AvgWait(),
		MaxWait:     s.MaxWait,
		TotalTravel: s.TotalTravel,
		MaxTravel:   s.MaxTravel,
		MaxQueue:    s.MaxQueue,
		Replans:     s.Replans,
		Rejections:  s.Rejections,
	}
}

// Census counts the tasks of a run by lifecycle position. Pending counts
// tasks that have not arrived yet.
type Census struct {
	Pending   int
	Waiting   int
	Assigned  int
	InService int
	Serviced  int
}

// Total is the number of tasks accounted for.
func (c Census) Total() int {
	return c.Pending + c.Waiting + c.Assigned + c.InService + c.Serviced
}
