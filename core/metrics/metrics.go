package metrics

import "time"

// CompletionEvent is emitted when an actor finishes servicing a task.
type CompletionEvent struct {
	RunID       string
	TaskID      int
	Actor       int
	Sector      int
	X, Y        float64
	Arrival     float64
	Completion  float64
	Wait        float64
	ServiceTime float64
}

// Sink records task completions.
type Sink interface {
	RecordCompletion(ev CompletionEvent) error
}

// ReplanEvent summarizes one policy call.
type ReplanEvent struct {
	RunID      string
	Policy     string
	SimTime    float64
	Sector     int
	Actors     int
	Planned    int
	Committed  int
	Rejected   int
	Iterations int
	Cost       float64
	Stop       string
	Elapsed    time.Duration
}

// ReplanRecorder records policy calls.
type ReplanRecorder interface {
	RecordReplan(ev ReplanEvent) error
}

// ActorStateEvent is a snapshot of one actor.
type ActorStateEvent struct {
	RunID     string
	Actor     int
	SimTime   float64
	X, Y      float64
	Heading   float64
	Busy      bool
	Queue     int
	Travelled float64
}

// ActorStateRecorder records actor snapshots.
type ActorStateRecorder interface {
	RecordActorState(ev ActorStateEvent) error
}

// RunSummary holds the final statistics of a run.
type RunSummary struct {
	RunID       string
	Policy      string
	Rate        float64
	SimTime     float64
	Serviced    int
	AvgWait     float64
	MaxWait     float64
	TotalTravel float64
	MaxTravel   float64
	MaxQueue    int
	Replans     int
	Rejections  int
}

// RunSummaryRecorder records the end of a run.
type RunSummaryRecorder interface {
	RecordRunSummary(s RunSummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCompletion(CompletionEvent) error { return nil }
func (NopSink) RecordReplan(ReplanEvent) error         { return nil }
func (NopSink) RecordActorState(ActorStateEvent) error { return nil }
func (NopSink) RecordRunSummary(RunSummary) error      { return nil }
