// Package monitoring forwards fatal run errors to an error tracker.
package monitoring

import (
	"errors"
	"strconv"
	"time"

	"github.com/kilianp07/dispatchsim/core/model"
)

// Config defines settings for Sentry error monitoring.
type Config struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Current returns the installed monitor. Use it as
// defer monitoring.Current().Recover() so the panic is seen by recover.
func Current() Monitor { return current }

// Tags describes err for the tracker. Invariant violations carry the task,
// actor, operation and sim time.
func Tags(err error, runID string) map[string]string {
	tags := map[string]string{}
	if runID != "" {
		tags["run_id"] = runID
	}
	var inv *model.InvariantError
	if errors.As(err, &inv) {
		tags["kind"] = "invariant"
		tags["task_id"] = strconv.Itoa(inv.TaskID)
		tags["actor_id"] = strconv.Itoa(inv.ActorID)
		tags["op"] = inv.Op
		tags["sim_time"] = strconv.FormatFloat(inv.SimTime, 'f', 3, 64)
	}
	return tags
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if current != nil {
		current.CaptureException(err, tags)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	if current != nil {
		current.Flush(d)
	}
}
