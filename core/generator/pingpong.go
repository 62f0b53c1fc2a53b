package generator

import (
	"math/rand"

	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// PingPongConfig configures PingPong.
type PingPongConfig struct {
	Config   `json:",squash"`
	Start    float64 `json:"start"` // first arrival
	FirstGap float64 `json:"first_gap"`
	Gap      float64 `json:"gap"`
}

// SetDefaults fills unset fields.
func (c *PingPongConfig) SetDefaults() {
	c.Config.SetDefaults()
	if c.Start == 0 {
		c.Start = 1
	}
	if c.FirstGap == 0 {
		c.FirstGap = 0.49
	}
	if c.Gap == 0 {
		c.Gap = 0.15
	}
}

// PingPong alternates tasks between (1,0) and (0,0) on a fixed schedule, a
// worst case for actors that commit to the nearest task.
type PingPong struct {
	cfg PingPongConfig
}

// NewPingPong returns the alternating generator.
func NewPingPong(c PingPongConfig) (*PingPong, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &PingPong{cfg: c}, nil
}

func (g *PingPong) Reset(*rand.Rand) {}

func (g *PingPong) Euclidean() bool { return true }

// DrawTasks implements Generator. The rate is ignored.
func (g *PingPong) DrawTasks(_ float64, f *field.Field) ([]model.Task, float64, error) {
	var tasks []model.Task
	now, gap := g.cfg.Start, g.cfg.FirstGap
	for odd := true; ; odd = !odd {
		loc := orb.Point{0, 0}
		if odd {
			loc = orb.Point{1, 0}
		}
		t := model.NewTask(len(tasks), loc, now)
		if f != nil && f.Euclidean() {
			t.Sector = f.SectorOf(loc)
		}
		tasks = append(tasks, t)
		now += gap
		gap = g.cfg.Gap
		if g.cfg.MaxTime > 0 {
			if now > g.cfg.MaxTime {
				break
			}
		} else if len(tasks) >= g.cfg.TotalTasks {
			break
		}
	}
	return tasks, 0, nil
}
