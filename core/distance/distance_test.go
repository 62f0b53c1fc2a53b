package distance

import (
	"testing"

	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func tasksAt(pts ...orb.Point) []*model.Task {
	out := make([]*model.Task, len(pts))
	for i, p := range pts {
		tk := model.NewTask(i+1, p, 0)
		tk.Node = i + 1
		out[i] = &tk
	}
	return out
}

func TestEuclideanSymmetric(t *testing.T) {
	a := model.NewActor(0, orb.Point{0, 0}, model.NoNode, 1, model.MotionDirect)
	tasks := tasksAt(orb.Point{3, 4}, orb.Point{0, 1})
	m, err := NewEuclidean().Build([]*model.Actor{a}, tasks)
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	assert.Equal(t, 5.0, m.At(0, 1))
	assert.Equal(t, 1.0, m.At(0, 2))
	for i := 0; i < 3; i++ {
		assert.Zero(t, m.At(i, i))
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
		}
	}
	assert.Nil(t, m.Task(0))
	assert.Equal(t, 2, m.Task(2).ID)
}

func TestEuclideanDeterministic(t *testing.T) {
	a := model.NewActor(0, orb.Point{0.2, 0.1}, model.NoNode, 1, model.MotionDirect)
	tasks := tasksAt(orb.Point{1, 4}, orb.Point{2, 1}, orb.Point{5, 5})
	m1, err := NewEuclidean().Build([]*model.Actor{a}, tasks)
	require.NoError(t, err)
	m2, err := NewEuclidean().Build([]*model.Actor{a}, tasks)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m1.D, m2.D))
}

func table() DenseTable {
	// asymmetric 4-node network, node 0 is the depot
	return DenseTable{M: mat.NewDense(4, 4, []float64{
		0, 2, 4, 6,
		3, 0, 1, 5,
		5, 2, 0, 1,
		7, 6, 2, 0,
	})}
}

func TestNetworkAsymmetric(t *testing.T) {
	a := model.NewActor(0, orb.Point{}, 0, 1, model.MotionTravelTime)
	tasks := tasksAt(orb.Point{1, 0}, orb.Point{2, 0})
	p := NewNetwork(table())
	require.False(t, p.Euclidean())
	m, err := p.Build([]*model.Actor{a}, tasks)
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.At(0, 1))
	assert.Equal(t, 3.0, m.At(1, 0))
	assert.Equal(t, 1.0, m.At(1, 2))
	assert.Equal(t, 2.0, m.At(2, 1))
	assert.Equal(t, 4.0, p.Leg(a.Depot(), tasks[1]))
}

func TestNetworkMidLegBlend(t *testing.T) {
	a := model.NewActor(0, orb.Point{}, 0, 1, model.MotionTravelTime)
	tgt := tasksAt(orb.Point{1, 0})[0] // node 1
	require.NoError(t, tgt.Assign(0, 0))
	a.SetPath([]model.PathEntry{{Task: tgt, LegCost: 4, HasCost: true}, {Task: a.Depot()}})
	_, err := a.Tick(1, 1) // ratio 0.25
	require.NoError(t, err)

	other := model.NewTask(9, orb.Point{3, 0}, 0)
	other.Node = 3
	m, err := NewNetwork(table()).Build([]*model.Actor{a}, []*model.Task{&other})
	require.NoError(t, err)
	// 0.75*D[0][3] + 0.25*D[1][3]
	assert.InDelta(t, 0.75*6+0.25*5, m.At(0, 1), 1e-12)
	assert.InDelta(t, 0.75*7+0.25*6, m.At(1, 0), 1e-12)
}

func TestNetworkUnknownNode(t *testing.T) {
	a := model.NewActor(0, orb.Point{}, 0, 1, model.MotionTravelTime)
	tk := model.NewTask(5, orb.Point{}, 0)
	_, err := NewNetwork(table()).Build([]*model.Actor{a}, []*model.Task{&tk})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 5")
}

func TestEmptyBuild(t *testing.T) {
	m, err := NewEuclidean().Build(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}
