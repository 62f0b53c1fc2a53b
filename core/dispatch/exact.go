package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/dispatchsim/core/logger"
)

var (
	// ErrUnsupportedCost is returned by a backend that cannot express the
	// configured objective.
	ErrUnsupportedCost = errors.New("cost mode not supported by exact backend")
	// ErrTooLarge is returned when an instance exceeds the backend limit.
	ErrTooLarge = errors.New("instance too large for exact backend")
	// ErrMultiActor is returned when more than one actor needs planning.
	ErrMultiActor = errors.New("exact backend plans a single actor")
)

// Solver computes an optimal single-actor tour. The returned tour starts at
// node 0 and visits every task node once.
type Solver interface {
	Solve(ctx context.Context, p *Problem) ([]int, error)
}

// HeldKarp is an exact subset dynamic program for open tours under the
// distance and linear wait objectives.
type HeldKarp struct {
	MaxNodes int // task nodes, default 12
}

// Solve implements Solver.
func (h HeldKarp) Solve(ctx context.Context, p *Problem) ([]int, error) {
	if p.M.Actors != 1 {
		return nil, ErrMultiActor
	}
	mode := p.Objective.Mode
	if mode != CostDistance && mode != CostWait {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCost, mode)
	}
	limit := h.MaxNodes
	if limit <= 0 {
		limit = 12
	}
	n := len(p.M.Tasks)
	if n > limit {
		return nil, fmt.Errorf("%w: %d tasks, limit %d", ErrTooLarge, n, limit)
	}
	if n == 0 {
		return []int{0}, nil
	}

	// With linear wait every leg delays all tasks not yet served, so a leg
	// weighs (cost + dwell) times the number of tasks still open.
	weight := func(from, to, open int) float64 {
		w := p.M.At(from, to)
		if mode == CostWait {
			w = (p.Travel(from, to) + p.Dwell[to]) * float64(open)
		}
		return w
	}

	full := 1 << n
	dp := make([][]float64, full)
	parent := make([][]int, full)
	for s := range dp {
		dp[s] = make([]float64, n)
		parent[s] = make([]int, n)
		for j := range dp[s] {
			dp[s][j] = math.Inf(1)
			parent[s][j] = -1
		}
	}
	for j := 0; j < n; j++ {
		dp[1<<j][j] = weight(0, j+1, n)
	}
	for s := 1; s < full; s++ {
		if s&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		open := n - popcount(s)
		for j := 0; j < n; j++ {
			if s&(1<<j) == 0 || math.IsInf(dp[s][j], 1) {
				continue
			}
			for k := 0; k < n; k++ {
				if s&(1<<k) != 0 {
					continue
				}
				ns := s | 1<<k
				c := dp[s][j] + weight(j+1, k+1, open)
				if c < dp[ns][k] {
					dp[ns][k] = c
					parent[ns][k] = j
				}
			}
		}
	}

	last, best := 0, math.Inf(1)
	for j := 0; j < n; j++ {
		if dp[full-1][j] < best {
			last, best = j, dp[full-1][j]
		}
	}
	tour := make([]int, n+1)
	s := full - 1
	for i := n; i >= 1; i-- {
		tour[i] = last + 1
		prev := parent[s][last]
		s &^= 1 << last
		last = prev
	}
	return tour, nil
}

func popcount(x int) int {
	c := 0
	for ; x != 0; x &= x - 1 {
		c++
	}
	return c
}

// ExactConfig configures the exact backend policy.
type ExactConfig struct {
	Cost     string   `json:"cost"`
	Trigger  string   `json:"trigger"`
	Eta      float64  `json:"eta"`
	EtaFirst bool     `json:"eta_first"`
	Gamma    *float64 `json:"gamma"`
	MaxNodes int      `json:"max_nodes"`
}

// ExactPolicy delegates tour construction to a Solver. Backend failures
// leave the tasks waiting and ask for a replan on the next tick.
type ExactPolicy struct {
	cfg     ExactConfig
	obj     Objective
	trigger Trigger
	solver  Solver
	log     logger.Logger
}

// NewExact wraps solver; a nil solver selects HeldKarp.
func NewExact(cfg ExactConfig, solver Solver) (*ExactPolicy, error) {
	if cfg.Cost == "" {
		cfg.Cost = CostWait.String()
	}
	if cfg.Trigger == "" {
		cfg.Trigger = OnIdlePending.String()
	}
	if cfg.Eta == 0 {
		cfg.Eta = 1
	}
	if cfg.Gamma == nil {
		one := 1.0
		cfg.Gamma = &one
	}
	mode, err := ParseCostMode(cfg.Cost)
	if err != nil {
		return nil, err
	}
	trig, err := ParseTrigger(cfg.Trigger)
	if err != nil {
		return nil, err
	}
	if solver == nil {
		solver = HeldKarp{MaxNodes: cfg.MaxNodes}
	}
	return &ExactPolicy{
		cfg:     cfg,
		obj:     Objective{Mode: mode, Exponent: 1},
		trigger: trig,
		solver:  solver,
		log:     logger.Nop{},
	}, nil
}

func (p *ExactPolicy) Name() string { return "exact" }

// SetLogger implements LoggerSetter.
func (p *ExactPolicy) SetLogger(l logger.Logger) { p.log = logger.OrNop(l) }

// Plan implements Policy.
func (p *ExactPolicy) Plan(ctx context.Context, req *Request) (Outcome, error) {
	actors := p.trigger.Select(req)
	if len(actors) == 0 {
		return Outcome{}, nil
	}
	tasks := scope(actors, req.Tasks)
	if len(tasks) == 0 {
		return Outcome{}, nil
	}
	if len(actors) != 1 {
		return p.fail(req, fmt.Errorf("%w: %d actors", ErrMultiActor, len(actors))), nil
	}

	prob, err := buildProblem(req, actors, tasks, p.obj)
	if err != nil {
		return Outcome{}, err
	}
	tour, err := p.solver.Solve(ctx, prob)
	if err == nil {
		err = validTour(tour, prob.M.Len())
	}
	if err != nil {
		return p.fail(req, err), nil
	}

	sol := Solution{Tours: [][]int{tour}}
	sol.Cost = prob.Cost(sol.Tours)
	out, err := commit(req, actors, prob, sol, commitOptions{
		policy:   p.Name(),
		eta:      p.cfg.Eta,
		etaFirst: p.cfg.EtaFirst,
		gamma:    *p.cfg.Gamma,
	}, p.log)
	out.Solver = Metrics{InitialCost: sol.Cost, BestCost: sol.Cost, BestCosts: []float64{sol.Cost}}
	return out, err
}

func (p *ExactPolicy) fail(req *Request, err error) Outcome {
	backendFailures.WithLabelValues(p.Name()).Inc()
	p.log.Warnf("exact backend failed at t=%.2f, tasks stay waiting: %v", req.Now, err)
	return Outcome{Replan: true}
}

func validTour(tour []int, n int) error {
	if len(tour) != n || tour[0] != 0 {
		return fmt.Errorf("backend returned %d stops for %d nodes", len(tour), n)
	}
	seen := make([]bool, n)
	for _, v := range tour {
		if v < 0 || v >= n || seen[v] {
			return fmt.Errorf("backend returned invalid node %d", v)
		}
		seen[v] = true
	}
	return nil
}
