package field

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unitSquare = []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

func TestFieldPartition(t *testing.T) {
	shapes := map[string][]orb.Point{
		"square":   unitSquare,
		"triangle": {{0, 0}, {2, 0}, {1, 2}},
		"rect":     {{0, 0}, {3, 0}, {3, 1}, {0, 1}},
	}
	centres := map[string]orb.Point{
		"square":   {0.5, 0.5},
		"triangle": {1, 0.7},
		"rect":     {1.5, 0.5},
	}
	rng := rand.New(rand.NewSource(1))
	for name, verts := range shapes {
		base := orb.Polygon{append(orb.Ring(append([]orb.Point{}, verts...)), verts[0])}
		_, area := planar.CentroidArea(base)
		for n := 1; n <= 6; n++ {
			f, err := New(verts, centres[name], n)
			require.NoError(t, err)
			require.Equal(t, n, f.Len())

			var sum float64
			for _, s := range f.Sectors {
				_, a := planar.CentroidArea(s.Polygon)
				sum += math.Abs(a)
			}
			assert.InDelta(t, math.Abs(area), sum, 1e-9, "%s n=%d areas", name, n)

			b := base.Bound()
			for i := 0; i < 500; i++ {
				p := orb.Point{
					b.Min[0] + rng.Float64()*(b.Max[0]-b.Min[0]),
					b.Min[1] + rng.Float64()*(b.Max[1]-b.Min[1]),
				}
				if !planar.PolygonContains(base, p) {
					continue
				}
				hits := 0
				for j := range f.Sectors {
					if f.Sectors[j].ContainsPoint(p) {
						hits++
					}
				}
				if hits != 1 {
					t.Fatalf("%s n=%d: point %v in %d sectors", name, n, p, hits)
				}
			}
		}
	}
}

func TestFieldEqualPerimeter(t *testing.T) {
	f, err := New(unitSquare, orb.Point{0.5, 0.5}, 4)
	require.NoError(t, err)
	want := []orb.Point{{1, 0.5}, {0.5, 1}, {0, 0.5}, {0.5, 0}}
	for i, s := range f.Sectors {
		ring := s.Polygon[0]
		// ring: from, vertices..., to, centre, from
		assert.Equal(t, want[i], ring[len(ring)-3], "sector %d cut", i)
		assert.Equal(t, orb.Point{0.5, 0.5}, ring[len(ring)-2])
	}
}

func TestFieldCentroidInside(t *testing.T) {
	f, err := New(unitSquare, orb.Point{0.5, 0.5}, 3)
	require.NoError(t, err)
	for _, s := range f.Sectors {
		assert.True(t, planar.PolygonContains(s.Polygon, s.Centroid), "sector %d", s.ID)
		assert.Equal(t, s.ID, f.SectorOf(s.Centroid))
	}
}

func TestNextSectorCycle(t *testing.T) {
	for n := 1; n <= 5; n++ {
		f, err := New(unitSquare, orb.Point{0.5, 0.5}, n)
		require.NoError(t, err)
		seen := map[int]bool{}
		for i := 0; i < n; i++ {
			seen[f.NextSector().ID] = true
		}
		assert.Len(t, seen, n)
		assert.Equal(t, 0, f.NextSector().ID, "cursor wraps")
	}
}

func TestDataField(t *testing.T) {
	f, err := NewDataField([]orb.Point{{0, 0}, {10, 0}})
	require.NoError(t, err)
	assert.False(t, f.Euclidean())

	tk := model.NewTask(1, orb.Point{9, 0}, 0)
	tk.Sector = 0
	assert.True(t, f.Contains(0, &tk), "labels win over geometry")
	assert.False(t, f.Contains(1, &tk))
	assert.Equal(t, 1, f.SectorOf(orb.Point{9, 0}))
	assert.Equal(t, orb.Point{5, 0}, f.Centre)
}

func TestFieldErrors(t *testing.T) {
	_, err := New(unitSquare[:2], orb.Point{}, 2)
	assert.Error(t, err)
	_, err = New(unitSquare, orb.Point{}, 0)
	assert.Error(t, err)
	_, err = NewDataField(nil)
	assert.Error(t, err)
}

func TestSectorOfOutside(t *testing.T) {
	f, err := New(unitSquare, orb.Point{0.5, 0.5}, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, f.SectorOf(orb.Point{5, 0.2}))
}
