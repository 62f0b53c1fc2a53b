package generator

import (
	"errors"
	"math/rand"

	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// Gaussian is a mean and standard deviation applied to both axes.
type Gaussian struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// BimodalConfig configures Bimodal.
type BimodalConfig struct {
	Config        `json:",squash"`
	Distributions []Gaussian `json:"distributions"`
	Mix           float64    `json:"mix"` // probability of the first mode
}

// SetDefaults fills unset fields.
func (c *BimodalConfig) SetDefaults() {
	c.Config.SetDefaults()
	if len(c.Distributions) == 0 {
		c.Distributions = []Gaussian{{Mean: 0.75, Std: 0.1}, {Mean: 0.25, Std: 0.1}}
	}
	if c.Mix == 0 {
		c.Mix = 0.5
	}
}

// Validate checks ranges.
func (c BimodalConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if len(c.Distributions) != 2 {
		return errors.New("bimodal generator needs exactly two distributions")
	}
	if c.Mix < 0 || c.Mix > 1 {
		return errors.New("mix must be in [0,1]")
	}
	return nil
}

// Bimodal draws from a two-Gaussian mixture truncated to [min,max].
type Bimodal struct {
	cfg BimodalConfig
	rng *rand.Rand
}

// NewBimodal returns a mixture generator.
func NewBimodal(c BimodalConfig) (*Bimodal, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Bimodal{cfg: c, rng: rand.New(rand.NewSource(0))}, nil
}

func (g *Bimodal) Reset(rng *rand.Rand) { g.rng = rng }

func (g *Bimodal) Euclidean() bool { return true }

func (g *Bimodal) point() orb.Point {
	d := g.cfg.Distributions[1]
	if g.rng.Float64() < g.cfg.Mix {
		d = g.cfg.Distributions[0]
	}
	return orb.Point{truncNormal(g.rng, d, g.cfg.Min, g.cfg.Max), truncNormal(g.rng, d, g.cfg.Min, g.cfg.Max)}
}

// DrawTasks implements Generator.
func (g *Bimodal) DrawTasks(rate float64, f *field.Field) ([]model.Task, float64, error) {
	return Arrivals(g.rng, rate, g.cfg.Config, f, func() (orb.Point, int, int) { return euclid(g.point()) })
}

// PathologicalConfig configures Pathological.
type PathologicalConfig struct {
	Config  `json:",squash"`
	Cluster Gaussian `json:"cluster"`
	Lead    int      `json:"lead"` // cluster tasks drawn before the lone outlier
}

// SetDefaults fills unset fields.
func (c *PathologicalConfig) SetDefaults() {
	c.Config.SetDefaults()
	if c.Cluster == (Gaussian{}) {
		c.Cluster = Gaussian{Mean: c.Min + 0.25*(c.Max-c.Min), Std: 0.1 * (c.Max - c.Min)}
	}
	if c.Lead == 0 {
		c.Lead = 4
	}
}

// Pathological sends a dense cluster and then one far-away task, which
// starves under pure throughput objectives.
type Pathological struct {
	cfg   PathologicalConfig
	rng   *rand.Rand
	drawn int
}

// NewPathological returns the outlier generator.
func NewPathological(c PathologicalConfig) (*Pathological, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Pathological{cfg: c, rng: rand.New(rand.NewSource(0))}, nil
}

func (g *Pathological) Reset(rng *rand.Rand) {
	g.rng = rng
	g.drawn = 0
}

func (g *Pathological) Euclidean() bool { return true }

func (g *Pathological) point() orb.Point {
	defer func() { g.drawn++ }()
	if g.drawn == g.cfg.Lead {
		far := g.cfg.Max - 0.05*(g.cfg.Max-g.cfg.Min)
		return orb.Point{far, far}
	}
	return orb.Point{
		truncNormal(g.rng, g.cfg.Cluster, g.cfg.Min, g.cfg.Max),
		truncNormal(g.rng, g.cfg.Cluster, g.cfg.Min, g.cfg.Max),
	}
}

// DrawTasks implements Generator.
func (g *Pathological) DrawTasks(rate float64, f *field.Field) ([]model.Task, float64, error) {
	g.drawn = 0
	return Arrivals(g.rng, rate, g.cfg.Config, f, func() (orb.Point, int, int) { return euclid(g.point()) })
}

// truncNormal redraws until the sample lands in [lo,hi].
func truncNormal(rng *rand.Rand, d Gaussian, lo, hi float64) float64 {
	for i := 0; i < 1000; i++ {
		v := d.Mean + rng.NormFloat64()*d.Std
		if v >= lo && v <= hi {
			return v
		}
	}
	return lo + rng.Float64()*(hi-lo)
}
