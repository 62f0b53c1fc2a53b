// Package generator draws the task streams fed to the simulation.
package generator

import (
	"errors"
	"math"
	"math/rand"

	"github.com/kilianp07/dispatchsim/core/distance"
	"github.com/kilianp07/dispatchsim/core/factory"
	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// ErrNoTasks is returned when a configuration cannot produce any task.
var ErrNoTasks = errors.New("generator produced no tasks")

// Generator produces the full, arrival-ordered task list of a run.
type Generator interface {
	// Reset rewinds the generator onto rng; the same seed yields the same
	// tasks.
	Reset(rng *rand.Rand)
	// DrawTasks returns the tasks and the first arrival offset. f labels
	// sectors in Euclidean mode and may be nil.
	DrawTasks(rate float64, f *field.Field) ([]model.Task, float64, error)
	Euclidean() bool
}

// FieldSource is implemented by generators that bring their own field.
type FieldSource interface {
	Field() *field.Field
}

// TableSource is implemented by network generators.
type TableSource interface {
	Table() distance.Table
}

// Locator snaps a point to the nearest network node of a sector.
type Locator interface {
	NearestLocation(sector int, p orb.Point) (node int, snapped orb.Point)
}

// Registry holds every named generator.
var Registry = factory.NewRegistry[Generator]("generator")

// Config holds the settings shared by the stochastic generators.
type Config struct {
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	MaxTime        float64 `json:"max_time"`    // stop once arrivals pass this time, 0 for unbounded
	TotalTasks     int     `json:"total_tasks"` // stop at this count when MaxTime is 0
	InitialTasks   int     `json:"initial_tasks"`
	MaxInitialWait float64 `json:"max_initial_wait"`
	ServiceTime    float64 `json:"service_time"` // mean dwell
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Min == 0 && c.Max == 0 {
		c.Max = 1
	}
	if c.MaxTime == 0 && c.TotalTasks == 0 {
		c.TotalTasks = 1000
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Max <= c.Min {
		return errors.New("max must exceed min")
	}
	if c.MaxTime < 0 || c.TotalTasks < 0 || c.InitialTasks < 0 {
		return errors.New("limits must not be negative")
	}
	return nil
}

// Draw yields one location and, in network mode, its node and sector.
type Draw func() (loc orb.Point, node, sector int)

// Arrivals builds a Poisson task stream: initial tasks at t=0 with a random
// latent wait, then exponential gaps at rate until the time or count limit.
func Arrivals(rng *rand.Rand, rate float64, c Config, f *field.Field, next Draw) ([]model.Task, float64, error) {
	if rate <= 0 {
		return nil, 0, errors.New("arrival rate must be positive")
	}
	tasks := make([]model.Task, 0, c.TotalTasks+c.InitialTasks)
	add := func(at float64) {
		loc, node, sector := next()
		t := model.NewTask(len(tasks), loc, at)
		t.Node = node
		t.Sector = sector
		if f != nil && f.Euclidean() {
			t.Sector = f.SectorOf(loc)
		}
		t.ServiceTime = serviceTime(rng, c.ServiceTime)
		tasks = append(tasks, t)
	}

	for i := 0; i < c.InitialTasks; i++ {
		add(0)
		tasks[len(tasks)-1].InitialWait = rng.Float64() * c.MaxInitialWait
	}

	first := rng.ExpFloat64() / rate
	now := first
	for {
		add(now)
		now += rng.ExpFloat64() / rate
		if c.MaxTime > 0 {
			if now > c.MaxTime {
				break
			}
		} else if len(tasks) >= c.TotalTasks {
			break
		}
	}
	return tasks, first, nil
}

// serviceTime draws from N(mean, 0.1*mean) clamped at zero.
func serviceTime(rng *rand.Rand, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return math.Max(0, mean+rng.NormFloat64()*0.1*mean)
}

func euclid(p orb.Point) (orb.Point, int, int) { return p, model.NoNode, 0 }

func decode[T any, P interface {
	*T
	SetDefaults()
	Validate() error
}](conf map[string]any) (*T, error) {
	c := new(T)
	if err := factory.Decode(conf, c); err != nil {
		return nil, err
	}
	P(c).SetDefaults()
	if err := P(c).Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
