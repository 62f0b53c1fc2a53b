package generator

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// FixedTask is one scripted task.
type FixedTask struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Arrival     float64 `json:"arrival"`
	ServiceTime float64 `json:"service_time"`
	InitialWait float64 `json:"initial_wait"`
}

// FixedConfig lists the tasks of a scripted run.
type FixedConfig struct {
	Tasks []FixedTask `json:"tasks"`
	// Accepted so shared defaults can be applied; a fixed list ignores them.
	MaxTime     float64 `json:"max_time"`
	TotalTasks  int     `json:"total_tasks"`
	ServiceTime float64 `json:"service_time"`
}

func (c *FixedConfig) SetDefaults() {}

// Validate checks the task list.
func (c FixedConfig) Validate() error {
	if len(c.Tasks) == 0 {
		return ErrNoTasks
	}
	for _, t := range c.Tasks {
		if t.ServiceTime < 0 || t.InitialWait < 0 {
			return errors.New("fixed task times must not be negative")
		}
	}
	return nil
}

// Fixed replays a scripted task list, ordered by arrival.
type Fixed struct {
	cfg FixedConfig
}

// NewFixed returns the scripted generator.
func NewFixed(c FixedConfig) (*Fixed, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Fixed{cfg: c}, nil
}

func (g *Fixed) Reset(*rand.Rand) {}

func (g *Fixed) Euclidean() bool { return true }

// DrawTasks implements Generator. The rate is ignored.
func (g *Fixed) DrawTasks(_ float64, f *field.Field) ([]model.Task, float64, error) {
	script := append([]FixedTask(nil), g.cfg.Tasks...)
	sort.SliceStable(script, func(i, j int) bool { return script[i].Arrival < script[j].Arrival })
	tasks := make([]model.Task, len(script))
	for i, s := range script {
		p := orb.Point{s.X, s.Y}
		tasks[i] = model.NewTask(i, p, s.Arrival)
		tasks[i].ServiceTime = s.ServiceTime
		tasks[i].InitialWait = s.InitialWait
		if f != nil && f.Euclidean() {
			tasks[i].Sector = f.SectorOf(p)
		}
	}
	return tasks, tasks[0].Arrival, nil
}
