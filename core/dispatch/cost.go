package dispatch

import (
	"fmt"
	"math"

	"github.com/kilianp07/dispatchsim/core/distance"
)

// CostMode selects the tour objective.
type CostMode int

const (
	// CostDistance sums leg costs.
	CostDistance CostMode = iota
	// CostWait sums the wait each task will have accrued at completion.
	CostWait
	// CostWaitPower sums wait^Exponent.
	CostWaitPower
	// CostWeighted mixes mean and max wait.
	CostWeighted
)

var costNames = map[CostMode]string{
	CostDistance:  "distance",
	CostWait:      "wait",
	CostWaitPower: "wait_power",
	CostWeighted:  "weighted",
}

func (m CostMode) String() string {
	if s, ok := costNames[m]; ok {
		return s
	}
	return fmt.Sprintf("CostMode(%d)", int(m))
}

// ParseCostMode maps a config name to a CostMode.
func ParseCostMode(s string) (CostMode, error) {
	for m, name := range costNames {
		if name == s {
			return m, nil
		}
	}
	return CostDistance, fmt.Errorf("unknown cost mode %q", s)
}

// Objective configures a cost mode.
type Objective struct {
	Mode     CostMode
	Exponent float64 // CostWaitPower only
	WAvg     float64 // CostWeighted only
	WMax     float64
}

// Problem is one routing instance: a cost matrix plus what the objective
// needs to turn positions in a tour into waits.
type Problem struct {
	M         *distance.Matrix
	Objective Objective
	Now       float64
	// Dwell is the service time of each node, zero for actor nodes.
	Dwell []float64
	// Start is the time each actor needs before it can leave, such as
	// remaining dwell.
	Start []float64
	// Pace converts a matrix cost into travel time. It is 1/speed for
	// Euclidean distances and 1 for travel-time tables.
	Pace float64
}

// NewProblem fills Dwell for every task node with dwell(node).
func NewProblem(m *distance.Matrix, obj Objective, now float64, dwell func(node int) float64) *Problem {
	p := &Problem{
		M:         m,
		Objective: obj,
		Now:       now,
		Dwell:     make([]float64, m.Len()),
		Start:     make([]float64, m.Actors),
		Pace:      1,
	}
	if dwell != nil {
		for i := m.Actors; i < m.Len(); i++ {
			p.Dwell[i] = dwell(i)
		}
	}
	return p
}

// TourCost evaluates one tour. tour[0] is an actor node. A tour without
// tasks costs 0.
func (p *Problem) TourCost(tour []int) float64 {
	if len(tour) <= 1 {
		return 0
	}
	if p.Objective.Mode == CostDistance {
		var c float64
		for k := 1; k < len(tour); k++ {
			c += p.M.At(tour[k-1], tour[k])
		}
		return c
	}

	var offset float64
	if tour[0] < len(p.Start) {
		offset = p.Start[tour[0]]
	}
	var sum, worst float64
	for k := 1; k < len(tour); k++ {
		offset += p.Travel(tour[k-1], tour[k]) + p.Dwell[tour[k]]
		w := offset + p.M.Task(tour[k]).AccruedWait(p.Now)
		switch p.Objective.Mode {
		case CostWaitPower:
			sum += math.Pow(math.Max(w, 0), p.Objective.Exponent)
		default:
			sum += w
		}
		worst = math.Max(worst, w)
	}
	if p.Objective.Mode == CostWeighted {
		return p.Objective.WAvg*sum/float64(len(tour)-1) + p.Objective.WMax*worst
	}
	return sum
}

// Travel is the time to go from node i to node j.
func (p *Problem) Travel(i, j int) float64 {
	return p.M.At(i, j) * p.Pace
}

// Cost is the total over all tours.
func (p *Problem) Cost(tours [][]int) float64 {
	var c float64
	for _, t := range tours {
		c += p.TourCost(t)
	}
	return c
}
