package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/dispatchsim/core/distance"
	"github.com/kilianp07/dispatchsim/core/model"
)

// Network is a directed travel-time graph over the dataset nodes.
// Node-to-node costs are shortest-path travel times. Pairs with no path cost
// their straight-line distance scaled by the slowest edge pace.
type Network struct {
	nodes    []Node
	waypts   map[[2]int]orb.LineString
	graph    *simple.WeightedDirectedGraph
	paths    path.AllShortest
	table    *mat.Dense
	pace     float64
	trees    map[int]*quadtree.Quadtree
	polyline *cache.Cache
}

type nodePointer struct {
	index int
	p     orb.Point
}

func (n nodePointer) Point() orb.Point { return n.p }

// NewNetwork builds the graph, the all-pairs table and the per-cluster
// spatial indexes. A ttl of zero keeps detailed paths cached forever.
func NewNetwork(nodes []Node, edges []Edge, ttl time.Duration) (*Network, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("dataset has no nodes")
	}
	n := &Network{
		nodes:  nodes,
		waypts: make(map[[2]int]orb.LineString),
		graph:  simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		trees:  make(map[int]*quadtree.Quadtree),
	}
	if ttl > 0 {
		n.polyline = cache.New(ttl, 2*ttl)
	} else {
		n.polyline = cache.New(cache.NoExpiration, 0)
	}
	for _, nd := range nodes {
		n.graph.AddNode(simple.Node(nd.Index))
	}
	for _, e := range edges {
		if e.Src < 0 || e.Src >= len(nodes) || e.Dst < 0 || e.Dst >= len(nodes) {
			return nil, fmt.Errorf("edge %d->%d references unknown node", e.Src, e.Dst)
		}
		if e.Src == e.Dst {
			continue
		}
		n.graph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(e.Src), T: simple.Node(e.Dst), W: e.TravelTime})
		if len(e.Waypoints) > 0 {
			n.waypts[[2]int{e.Src, e.Dst}] = e.Waypoints
		}
		if d := planar.Distance(nodes[e.Src].Point, nodes[e.Dst].Point); d > 0 {
			n.pace = math.Max(n.pace, e.TravelTime/d)
		}
	}
	if n.pace == 0 {
		n.pace = 1
	}
	n.paths = path.DijkstraAllPaths(n.graph)
	n.buildTable()
	n.buildTrees()
	return n, nil
}

func (n *Network) buildTable() {
	size := len(n.nodes)
	n.table = mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			w := n.paths.Weight(int64(i), int64(j))
			if math.IsInf(w, 1) {
				w = planar.Distance(n.nodes[i].Point, n.nodes[j].Point) * n.pace
			}
			n.table.Set(i, j, w)
		}
	}
}

func (n *Network) buildTrees() {
	byCluster := make(map[int][]Node)
	for _, nd := range n.nodes {
		byCluster[nd.Cluster] = append(byCluster[nd.Cluster], nd)
	}
	for c, members := range byCluster {
		var mp orb.MultiPoint
		for _, nd := range members {
			mp = append(mp, nd.Point)
		}
		qt := quadtree.New(mp.Bound())
		for _, nd := range members {
			_ = qt.Add(nodePointer{index: nd.Index, p: nd.Point})
		}
		n.trees[c] = qt
	}
}

// Table returns the travel-time table.
func (n *Network) Table() distance.Table { return distance.DenseTable{M: n.table} }

// Nodes returns the dataset nodes.
func (n *Network) Nodes() []Node { return n.nodes }

// NearestLocation snaps p to the closest node of the sector's cluster.
func (n *Network) NearestLocation(sector int, p orb.Point) (int, orb.Point) {
	qt, ok := n.trees[sector]
	if !ok {
		return model.NoNode, p
	}
	found := qt.Find(p)
	if found == nil {
		return model.NoNode, p
	}
	np := found.(nodePointer)
	return np.index, np.p
}

// DetailedPath returns the polyline followed from src to dst. Hops that carry
// waypoints contribute them; other hops go straight between node points.
func (n *Network) DetailedPath(src, dst int) (orb.LineString, bool) {
	if src == dst || src < 0 || dst < 0 || src >= len(n.nodes) || dst >= len(n.nodes) {
		return nil, false
	}
	key := fmt.Sprintf("%d:%d", src, dst)
	if v, ok := n.polyline.Get(key); ok {
		ls := v.(orb.LineString)
		return ls, ls != nil
	}
	ls := n.route(src, dst)
	n.polyline.SetDefault(key, ls)
	return ls, ls != nil
}

func (n *Network) route(src, dst int) orb.LineString {
	hops, _, _ := n.paths.Between(int64(src), int64(dst))
	if len(hops) < 2 {
		return nil
	}
	ls := orb.LineString{n.nodes[src].Point}
	for i := 1; i < len(hops); i++ {
		from, to := int(hops[i-1].ID()), int(hops[i].ID())
		for _, p := range n.waypts[[2]int{from, to}] {
			if !p.Equal(ls[len(ls)-1]) {
				ls = append(ls, p)
			}
		}
		if end := n.nodes[to].Point; !end.Equal(ls[len(ls)-1]) {
			ls = append(ls, end)
		}
	}
	return ls
}
