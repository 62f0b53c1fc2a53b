// Package distance builds the pairwise cost matrices consumed by the
// dispatch policies.
package distance

import (
	"fmt"

	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/mat"
)

// Table is a precomputed node-to-node cost lookup, possibly asymmetric.
type Table interface {
	Cost(src, dst int) float64
	Nodes() int
}

// DenseTable adapts a square gonum matrix to Table.
type DenseTable struct {
	M *mat.Dense
}

func (d DenseTable) Cost(src, dst int) float64 { return d.M.At(src, dst) }

func (d DenseTable) Nodes() int {
	r, _ := d.M.Dims()
	return r
}

// Matrix is the cost matrix of one replan. Rows [0, Actors) are the actors'
// positions, the remaining rows follow Tasks in order.
type Matrix struct {
	D      *mat.Dense
	Actors int
	Tasks  []*model.Task
}

// Len is the number of nodes.
func (m *Matrix) Len() int { return m.Actors + len(m.Tasks) }

// At returns the cost of travelling from node i to node j.
func (m *Matrix) At(i, j int) float64 { return m.D.At(i, j) }

// Task maps a node index back to its task. It returns nil for actor nodes.
func (m *Matrix) Task(i int) *model.Task {
	if i < m.Actors {
		return nil
	}
	return m.Tasks[i-m.Actors]
}

// Provider computes costs in Euclidean space or over a network table.
type Provider struct {
	table Table
}

// NewEuclidean returns a straight-line distance provider.
func NewEuclidean() *Provider { return &Provider{} }

// NewNetwork returns a provider that looks costs up in t.
func NewNetwork(t Table) *Provider { return &Provider{table: t} }

// Euclidean reports whether costs are straight-line distances.
func (p *Provider) Euclidean() bool { return p.table == nil }

// Build returns the (A+T)x(A+T) matrix for the given actors and tasks. In
// network mode an actor caught mid-leg is represented by a blend of its
// from-node and target rows weighted by the completed ratio.
func (p *Provider) Build(actors []*model.Actor, tasks []*model.Task) (*Matrix, error) {
	n := len(actors) + len(tasks)
	m := &Matrix{Actors: len(actors), Tasks: tasks}
	if n == 0 {
		m.D = &mat.Dense{}
		return m, nil
	}
	m.D = mat.NewDense(n, n, nil)

	if p.table == nil {
		pos := make([][2]float64, 0, n)
		for _, a := range actors {
			pos = append(pos, a.Pos)
		}
		for _, t := range tasks {
			pos = append(pos, t.Location)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				d := planar.Distance(pos[i], pos[j])
				m.D.Set(i, j, d)
				m.D.Set(j, i, d)
			}
		}
		return m, nil
	}

	nodes := make([]blend, 0, n)
	for _, a := range actors {
		from, to, r, ok := a.LegProgress()
		if !ok {
			from, to, r = a.Node, a.Node, 0
		}
		nodes = append(nodes, blend{from: from, to: to, r: r})
	}
	for _, t := range tasks {
		nodes = append(nodes, blend{from: t.Node, to: t.Node})
	}
	for i, b := range nodes {
		if err := p.check(b); err != nil {
			if i < len(actors) {
				return nil, fmt.Errorf("actor %d: %w", actors[i].ID, err)
			}
			return nil, fmt.Errorf("task %d: %w", tasks[i-len(actors)].ID, err)
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m.D.Set(i, j, p.blended(nodes[i], nodes[j]))
			}
		}
	}
	return m, nil
}

// Leg is the cost between two stops, the depot included.
func (p *Provider) Leg(from, to *model.Task) float64 {
	if p.table == nil || from.Node == model.NoNode || to.Node == model.NoNode {
		return planar.Distance(from.Location, to.Location)
	}
	return p.table.Cost(from.Node, to.Node)
}

type blend struct {
	from, to int
	r        float64
}

func (p *Provider) check(b blend) error {
	n := p.table.Nodes()
	if b.from < 0 || b.from >= n || b.to < 0 || b.to >= n {
		return fmt.Errorf("node (%d,%d) outside table of %d nodes", b.from, b.to, n)
	}
	return nil
}

func (p *Provider) blended(a, b blend) float64 {
	c := func(src, dst int) float64 {
		if src == dst {
			return 0
		}
		return p.table.Cost(src, dst)
	}
	// both ends may be partially travelled legs
	ff := c(a.from, b.from)
	ft := c(a.from, b.to)
	tf := c(a.to, b.from)
	tt := c(a.to, b.to)
	return (1-a.r)*((1-b.r)*ff+b.r*ft) + a.r*((1-b.r)*tf+b.r*tt)
}
