package generator

import (
	"math/rand"

	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// BadBusinessConfig configures BadBusiness.
type BadBusinessConfig struct {
	Config   `json:",squash"`
	Start    float64  `json:"start"`     // first arrival
	FirstGap float64  `json:"first_gap"` // later gaps are service_time+0.1
	Far      Gaussian `json:"far"`
}

// SetDefaults fills unset fields.
func (c *BadBusinessConfig) SetDefaults() {
	c.Config.SetDefaults()
	if c.Start == 0 {
		c.Start = 1
	}
	if c.FirstGap == 0 {
		c.FirstGap = 1.1
	}
	if c.Far == (Gaussian{}) {
		c.Far = Gaussian{Mean: 0.15, Std: 0.05}
	}
}

// BadBusiness keeps one task appearing beside the last one while pairs of
// tasks pile up on the far side of the field. Actors that chase the nearest
// task never get to the far pairs.
type BadBusiness struct {
	cfg BadBusinessConfig
	rng *rand.Rand
}

// NewBadBusiness returns the adversarial generator.
func NewBadBusiness(c BadBusinessConfig) (*BadBusiness, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &BadBusiness{cfg: c, rng: rand.New(rand.NewSource(0))}, nil
}

func (g *BadBusiness) Reset(rng *rand.Rand) { g.rng = rng }

func (g *BadBusiness) Euclidean() bool { return true }

// DrawTasks implements Generator. The rate is ignored.
func (g *BadBusiness) DrawTasks(_ float64, f *field.Field) ([]model.Task, float64, error) {
	near := [2]orb.Point{{0.75, 0.75}, {0.75, 0.85}}
	var tasks []model.Task
	add := func(loc orb.Point, at float64) {
		t := model.NewTask(len(tasks), loc, at)
		t.ServiceTime = g.cfg.ServiceTime
		if f != nil && f.Euclidean() {
			t.Sector = f.SectorOf(loc)
		}
		tasks = append(tasks, t)
	}

	now, gap := g.cfg.Start, g.cfg.FirstGap
	for i := 0; ; i++ {
		add(near[i%2], now)
		if i > 0 {
			for k := 0; k < 2; k++ {
				add(orb.Point{
					truncNormal(g.rng, g.cfg.Far, g.cfg.Min, g.cfg.Max),
					truncNormal(g.rng, g.cfg.Far, g.cfg.Min, g.cfg.Max),
				}, now)
			}
		}
		now += gap
		gap = g.cfg.ServiceTime + 0.1
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
