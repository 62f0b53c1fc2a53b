package generator

import (
	"math/rand"

	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// UniformConfig configures Uniform.
type UniformConfig struct {
	Config `json:",squash"`
}

// Uniform scatters tasks over the square [min,max]^2.
type Uniform struct {
	cfg UniformConfig
	rng *rand.Rand
}

// NewUniform returns a uniform generator.
func NewUniform(c UniformConfig) *Uniform {
	c.SetDefaults()
	return &Uniform{cfg: c, rng: rand.New(rand.NewSource(0))}
}

func (g *Uniform) Reset(rng *rand.Rand) { g.rng = rng }

func (g *Uniform) Euclidean() bool { return true }

func (g *Uniform) point() orb.Point {
	span := g.cfg.Max - g.cfg.Min
	return orb.Point{g.cfg.Min + g.rng.Float64()*span, g.cfg.Min + g.rng.Float64()*span}
}

// DrawTasks implements Generator.
func (g *Uniform) DrawTasks(rate float64, f *field.Field) ([]model.Task, float64, error) {
	return Arrivals(g.rng, rate, g.cfg.Config, f, func() (orb.Point, int, int) { return euclid(g.point()) })
}

// All places every task at t=0 at uniform locations.
type All struct {
	Uniform
}

// NewAll returns a generator with no arrival process.
func NewAll(c UniformConfig) *All {
	return &All{Uniform: *NewUniform(c)}
}

// DrawTasks implements Generator.
func (g *All) DrawTasks(_ float64, f *field.Field) ([]model.Task, float64, error) {
	n := g.cfg.TotalTasks
	if n <= 0 {
		return nil, 0, ErrNoTasks
	}
	tasks := make([]model.Task, n)
	for i := range tasks {
		p := g.point()
		tasks[i] = model.NewTask(i, p, 0)
		tasks[i].ServiceTime = serviceTime(g.rng, g.cfg.ServiceTime)
		if f != nil && f.Euclidean() {
			tasks[i].Sector = f.SectorOf(p)
		}
	}
	return tasks, 0, nil
}
