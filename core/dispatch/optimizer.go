package dispatch

import (
	"context"
	"math/rand"
	"time"
)

// StopReason tells why a search ended.
type StopReason string

const (
	StopStall      StopReason = "stall"
	StopTimeout    StopReason = "timeout"
	StopIterations StopReason = "iterations"
	StopCanceled   StopReason = "canceled"
	StopTrivial    StopReason = "trivial"
)

// Metrics summarises one optimizer run.
type Metrics struct {
	Iterations   int
	Improvements int
	InitialCost  float64
	BestCost     float64
	// BestCosts holds the incumbent cost after every iteration; it never
	// increases.
	BestCosts []float64
	Elapsed   time.Duration
	Stop      StopReason
}

// Solution assigns every task node to exactly one tour. Tours[i][0] is
// actor node i.
type Solution struct {
	Tours [][]int
	Cost  float64
}

const (
	defaultStallLimit = 1000
	defaultRemovals   = 2
)

// Optimizer is a large neighbourhood search: remove a few task nodes at
// random and reinsert each at its cheapest position, keeping the candidate
// only when it strictly improves.
type Optimizer struct {
	MaxTime       time.Duration // wall clock budget, 0 for none
	StallLimit    int           // consecutive non-improving iterations
	Removals      int           // nodes destroyed per iteration
	MaxIterations int           // optional hard cap
}

func (o Optimizer) withDefaults() Optimizer {
	if o.StallLimit <= 0 {
		o.StallLimit = defaultStallLimit
	}
	if o.Removals <= 0 {
		o.Removals = defaultRemovals
	}
	return o
}

// Solve runs the search. It always returns a feasible solution: the random
// initial partition when nothing better is found in time.
func (o Optimizer) Solve(ctx context.Context, p *Problem, rng *rand.Rand) (Solution, Metrics) {
	o = o.withDefaults()
	start := time.Now()
	actors := p.M.Actors
	n := p.M.Len()

	best := Solution{Tours: make([][]int, actors)}
	for i := range best.Tours {
		best.Tours[i] = []int{i}
	}
	if actors > 0 {
		for node := actors; node < n; node++ {
			k := rng.Intn(actors)
			best.Tours[k] = append(best.Tours[k], node)
		}
	}
	best.Cost = p.Cost(best.Tours)
	m := Metrics{InitialCost: best.Cost, BestCost: best.Cost}

	if actors == 0 || n < 3 {
		m.Stop = StopTrivial
		m.Elapsed = time.Since(start)
		return best, m
	}

	stall := 0
	for {
		if err := ctx.Err(); err != nil {
			m.Stop = StopCanceled
			break
		}
		if o.MaxTime > 0 && time.Since(start) >= o.MaxTime {
			m.Stop = StopTimeout
			break
		}
		if o.MaxIterations > 0 && m.Iterations >= o.MaxIterations {
			m.Stop = StopIterations
			break
		}

		cand := cloneTours(best.Tours)
		removed := o.destroy(cand, n-actors, rng)
		repair(p, cand, removed, rng)
		c := p.Cost(cand)
		m.Iterations++

		if c < best.Cost {
			best = Solution{Tours: cand, Cost: c}
			m.Improvements++
			stall = 0
		} else {
			stall++
		}
		m.BestCosts = append(m.BestCosts, best.Cost)
		if stall >= o.StallLimit {
			m.Stop = StopStall
			break
		}
	}
	m.BestCost = best.Cost
	m.Elapsed = time.Since(start)
	return best, m
}

// destroy removes task nodes from random tours.
func (o Optimizer) destroy(tours [][]int, removable int, rng *rand.Rand) []int {
	p := o.Removals
	if p > removable {
		p = max(1, removable/2-1)
	}
	removed := make([]int, 0, p)
	candidates := make([]int, 0, len(tours))
	for len(removed) < p {
		candidates = candidates[:0]
		for i, t := range tours {
			if len(t) > 1 {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			break
		}
		ti := candidates[rng.Intn(len(candidates))]
		pos := 1 + rng.Intn(len(tours[ti])-1)
		removed = append(removed, tours[ti][pos])
		tours[ti] = append(tours[ti][:pos], tours[ti][pos+1:]...)
	}
	return removed
}

// repair inserts each removed node, in random order, where it raises the
// total cost least.
func repair(p *Problem, tours [][]int, removed []int, rng *rand.Rand) {
	rng.Shuffle(len(removed), func(i, j int) { removed[i], removed[j] = removed[j], removed[i] })
	buf := make([]int, 0)
	for _, node := range removed {
		bestTour, bestPos := -1, -1
		bestDelta := 0.0
		for ti, t := range tours {
			base := p.TourCost(t)
			for pos := 1; pos <= len(t); pos++ {
				buf = insertAt(buf[:0], t, pos, node)
				delta := p.TourCost(buf) - base
				if bestTour < 0 || delta < bestDelta {
					bestTour, bestPos, bestDelta = ti, pos, delta
				}
			}
		}
		tours[bestTour] = insertAt(make([]int, 0, len(tours[bestTour])+1), tours[bestTour], bestPos, node)
	}
}

func insertAt(dst, tour []int, pos, node int) []int {
	dst = append(dst, tour[:pos]...)
	dst = append(dst, node)
	return append(dst, tour[pos:]...)
}

func cloneTours(tours [][]int) [][]int {
	out := make([][]int, len(tours))
	for i, t := range tours {
		out[i] = append([]int(nil), t...)
	}
	return out
}
