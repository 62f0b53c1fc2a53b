package sim

import (
	"errors"
	"fmt"

	"github.com/kilianp07/dispatchsim/core/model"
)

// Config defines the run parameters of a simulation.
type Config struct {
	Seed        int64   `json:"seed"`
	Tick        float64 `json:"tick"`         // sim time advanced per step
	MaxTime     float64 `json:"max_time"`     // stop once the clock passes it, 0 to stop on MaxTasks
	MaxTasks    int     `json:"max_tasks"`    // stop at this many serviced tasks when MaxTime is 0
	ArrivalRate float64 `json:"arrival_rate"` // Poisson rate handed to the generator
	Actors      int     `json:"actors"`       // fleet size, one per sector when decentralized
	Speed       float64 `json:"speed"`
	ServiceTime float64 `json:"service_time"` // dwell for tasks without their own
	// Centralized plans every actor jointly, one sector per tick.
	Centralized bool   `json:"centralized"`
	Motion      string `json:"motion"` // "direct" or "travel_time", network fields default to travel_time
	// Depot is an [x, y] start shared by every actor. Empty places each
	// actor at its sector centroid.
	Depot []float64 `json:"depot"`
	// SnapshotEvery sends actor snapshots to the sink every n ticks, 0 disables them.
	SnapshotEvery int `json:"snapshot_every"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Tick == 0 {
		c.Tick = 0.1
	}
	if c.MaxTime == 0 && c.MaxTasks == 0 {
		c.MaxTasks = 1000
	}
	if c.ArrivalRate == 0 {
		c.ArrivalRate = 1
	}
	if c.Actors == 0 {
		c.Actors = 1
	}
	if c.Speed == 0 {
		c.Speed = 1
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Tick <= 0 {
		return errors.New("simulation: tick must be positive")
	}
	if c.MaxTime < 0 || c.MaxTasks < 0 {
		return errors.New("simulation: limits must not be negative")
	}
	if c.ArrivalRate <= 0 {
		return errors.New("simulation: arrival_rate must be positive")
	}
	if c.Actors <= 0 {
		return errors.New("simulation: actors must be positive")
	}
	if c.Speed <= 0 {
		return errors.New("simulation: speed must be positive")
	}
	if c.ServiceTime < 0 {
		return errors.New("simulation: service_time must not be negative")
	}
	if c.SnapshotEvery < 0 {
		return errors.New("simulation: snapshot_every must not be negative")
	}
	if len(c.Depot) != 0 && len(c.Depot) != 2 {
		return errors.New("simulation: depot must be [x, y]")
	}
	if _, err := model.ParseMotion(c.Motion); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}
