package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/dispatchsim/core/logger"
	"github.com/kilianp07/dispatchsim/core/model"
)

// LNSConfig configures a local search policy.
type LNSConfig struct {
	Cost          string   `json:"cost"`
	Exponent      float64  `json:"exponent"`
	WAvg          float64  `json:"w_avg"`
	WMax          float64  `json:"w_max"`
	Trigger       string   `json:"trigger"`
	Eta           float64  `json:"eta"`
	EtaFirst      bool     `json:"eta_first"`
	Gamma         *float64 `json:"gamma"`           // unset means 1, which admits everything
	MaxSolverTime float64  `json:"max_solver_time"` // seconds
	StallLimit    int      `json:"stall_limit"`
	Removals      int      `json:"removals"`
	MaxIterations int      `json:"max_iterations"`
}

// SetDefaults fills unset fields.
func (c *LNSConfig) SetDefaults() {
	if c.Cost == "" {
		c.Cost = CostWait.String()
	}
	if c.Trigger == "" {
		c.Trigger = OnArrival.String()
	}
	if c.Exponent == 0 {
		c.Exponent = 2
	}
	if c.WAvg == 0 && c.WMax == 0 {
		c.WAvg, c.WMax = 0.8, 0.2
	}
	if c.Eta == 0 {
		c.Eta = 1
	}
	if c.Gamma == nil {
		one := 1.0
		c.Gamma = &one
	}
	if c.MaxSolverTime == 0 {
		c.MaxSolverTime = 1
	}
	if c.StallLimit == 0 {
		c.StallLimit = defaultStallLimit
	}
	if c.Removals == 0 {
		c.Removals = defaultRemovals
	}
}

// Validate checks ranges.
func (c LNSConfig) Validate() error {
	if _, err := ParseCostMode(c.Cost); err != nil {
		return err
	}
	if _, err := ParseTrigger(c.Trigger); err != nil {
		return err
	}
	if c.Eta <= 0 || c.Eta > 1 {
		return fmt.Errorf("eta must be in (0,1], got %v", c.Eta)
	}
	if c.Gamma != nil && (*c.Gamma < 0 || *c.Gamma > 1) {
		return fmt.Errorf("gamma must be in [0,1], got %v", *c.Gamma)
	}
	if c.MaxSolverTime < 0 {
		return errors.New("max_solver_time must not be negative")
	}
	return nil
}

func (c LNSConfig) objective() Objective {
	mode, _ := ParseCostMode(c.Cost)
	return Objective{Mode: mode, Exponent: c.Exponent, WAvg: c.WAvg, WMax: c.WMax}
}

// LNSPolicy replans with the local search optimizer.
type LNSPolicy struct {
	name    string
	cfg     LNSConfig
	obj     Objective
	trigger Trigger
	opt     Optimizer
	log     logger.Logger
}

// NewLNS builds a local search policy. Unset fields take their defaults.
func NewLNS(name string, cfg LNSConfig) (*LNSPolicy, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	trig, _ := ParseTrigger(cfg.Trigger)
	return &LNSPolicy{
		name:    name,
		cfg:     cfg,
		obj:     cfg.objective(),
		trigger: trig,
		opt: Optimizer{
			MaxTime:       time.Duration(cfg.MaxSolverTime * float64(time.Second)),
			StallLimit:    cfg.StallLimit,
			Removals:      cfg.Removals,
			MaxIterations: cfg.MaxIterations,
		},
		log: logger.Nop{},
	}, nil
}

func (p *LNSPolicy) Name() string { return p.name }

// SetLogger implements LoggerSetter.
func (p *LNSPolicy) SetLogger(l logger.Logger) { p.log = logger.OrNop(l) }

// Config returns the effective configuration.
func (p *LNSPolicy) Config() LNSConfig { return p.cfg }

// Plan implements Policy.
func (p *LNSPolicy) Plan(ctx context.Context, req *Request) (Outcome, error) {
	actors := p.trigger.Select(req)
	if len(actors) == 0 {
		return Outcome{}, nil
	}
	tasks := scope(actors, req.Tasks)
	if len(tasks) == 0 {
		return Outcome{}, nil
	}

	prob, err := buildProblem(req, actors, tasks, p.obj)
	if err != nil {
		return Outcome{}, err
	}
	sol, m := p.opt.Solve(ctx, prob, req.Rand)
	observeSolver(p.name, m)
	if m.Stop == StopTimeout && m.Improvements == 0 {
		p.log.Warnf("%s: time budget spent without improvement at t=%.2f, committing initial tours", p.name, req.Now)
	}
	p.log.Debugw("replan", map[string]any{
		"policy":     p.name,
		"now":        req.Now,
		"actors":     len(actors),
		"tasks":      len(tasks),
		"iterations": m.Iterations,
		"initial":    m.InitialCost,
		"best":       m.BestCost,
		"stop":       string(m.Stop),
	})

	out, err := commit(req, actors, prob, sol, commitOptions{
		policy:   p.name,
		eta:      p.cfg.Eta,
		etaFirst: p.cfg.EtaFirst,
		gamma:    *p.cfg.Gamma,
	}, p.log)
	out.Solver = m
	return out, err
}

// buildProblem builds the cost matrix for actors and tasks and fills the
// service and start offsets the wait objectives need.
func buildProblem(req *Request, actors []*model.Actor, tasks []*model.Task, obj Objective) (*Problem, error) {
	if req.Provider == nil {
		return nil, errors.New("dispatch request without distance provider")
	}
	m, err := req.Provider.Build(actors, tasks)
	if err != nil {
		return nil, fmt.Errorf("build cost matrix: %w", err)
	}
	prob := NewProblem(m, obj, req.Now, func(node int) float64 {
		return actors[0].Dwell(m.Task(node))
	})
	if req.Provider.Euclidean() && actors[0].Speed > 0 {
		prob.Pace = 1 / actors[0].Speed
	}
	for i, a := range actors {
		prob.Start[i] = a.Remaining(req.Now)
	}
	return prob, nil
}
