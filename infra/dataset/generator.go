package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/kilianp07/dispatchsim/core/factory"
	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/generator"
	"github.com/kilianp07/dispatchsim/core/model"
)

// Config configures the dataset generator.
type Config struct {
	generator.Config `json:",squash"`
	// Nodes is the clustered nodes file.
	Nodes string `json:"nodes"`
	// Edges defaults to the distances file next to Nodes.
	Edges string `json:"edges"`
	// PathTTL expires cached detailed paths after this many seconds.
	PathTTL float64 `json:"path_ttl"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	c.Config.SetDefaults()
	if c.Edges == "" && c.Nodes != "" {
		c.Edges = EdgesPath(c.Nodes)
	}
}

// Validate checks the file settings.
func (c Config) Validate() error {
	if c.Nodes == "" {
		return errors.New("dataset: nodes file is required")
	}
	if c.PathTTL < 0 {
		return errors.New("dataset: path_ttl must be >= 0")
	}
	return c.Config.Validate()
}

// Generator draws tasks at the non-depot nodes of a dataset. Sectors are the
// node clusters and each sector's centroid is its depot.
type Generator struct {
	*Network
	cfg   generator.Config
	field *field.Field
	sites []Node
	rng   *rand.Rand
}

// Load reads the dataset files named by cfg.
func Load(cfg Config) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodes, err := readFile(cfg.Nodes, ReadNodes)
	if err != nil {
		return nil, err
	}
	edges, err := readFile(cfg.Edges, ReadEdges)
	if err != nil {
		return nil, err
	}
	return New(cfg.Config, nodes, edges, time.Duration(cfg.PathTTL*float64(time.Second)))
}

// New builds a generator from parsed nodes and edges. Clusters must be
// numbered 0..k-1.
func New(cfg generator.Config, nodes []Node, edges []Edge, ttl time.Duration) (*Generator, error) {
	cfg.SetDefaults()
	net, err := NewNetwork(nodes, edges, ttl)
	if err != nil {
		return nil, err
	}
	centroids, err := depots(nodes)
	if err != nil {
		return nil, err
	}
	f, err := field.NewDataField(centroids)
	if err != nil {
		return nil, err
	}
	g := &Generator{Network: net, cfg: cfg, field: f, rng: rand.New(rand.NewSource(0))}
	for _, nd := range nodes {
		if !nd.Depot {
			g.sites = append(g.sites, nd)
		}
	}
	if len(g.sites) == 0 {
		return nil, errors.New("dataset has no task sites")
	}
	return g, nil
}

// depots returns one centroid per cluster: the depot node when the cluster
// has one, the mean of its nodes otherwise.
func depots(nodes []Node) ([]orb.Point, error) {
	type acc struct {
		sum   orb.Point
		count int
		depot *orb.Point
	}
	byCluster := make(map[int]*acc)
	for _, nd := range nodes {
		if nd.Cluster < 0 {
			return nil, fmt.Errorf("node %d has negative cluster", nd.Index)
		}
		a := byCluster[nd.Cluster]
		if a == nil {
			a = &acc{}
			byCluster[nd.Cluster] = a
		}
		if nd.Depot && a.depot == nil {
			p := nd.Point
			a.depot = &p
		}
		a.sum[0] += nd.Point[0]
		a.sum[1] += nd.Point[1]
		a.count++
	}
	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]orb.Point, len(ids))
	for i, id := range ids {
		if id != i {
			return nil, fmt.Errorf("clusters must be numbered 0..%d, missing %d", len(ids)-1, i)
		}
		a := byCluster[id]
		if a.depot != nil {
			out[i] = *a.depot
		} else {
			out[i] = orb.Point{a.sum[0] / float64(a.count), a.sum[1] / float64(a.count)}
		}
	}
	return out, nil
}

func (g *Generator) Reset(rng *rand.Rand) { g.rng = rng }

func (g *Generator) Euclidean() bool { return false }

// Field returns the cluster field.
func (g *Generator) Field() *field.Field { return g.field }

// DrawTasks implements generator.Generator. The field argument is ignored;
// tasks carry their node's cluster as sector.
func (g *Generator) DrawTasks(rate float64, _ *field.Field) ([]model.Task, float64, error) {
	return generator.Arrivals(g.rng, rate, g.cfg, nil, func() (orb.Point, int, int) {
		nd := g.sites[g.rng.Intn(len(g.sites))]
		return nd.Point, nd.Index, nd.Cluster
	})
}

func init() {
	generator.Registry.MustRegister("dataset", func(conf map[string]any) (generator.Generator, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Load(c)
	})
}
