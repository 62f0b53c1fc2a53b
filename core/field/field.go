// Package field partitions the service region into sectors.
//
// A Euclidean field is built from a convex base polygon cut into N wedges of
// equal perimeter that meet at a shared centre. A data field only knows the
// sector centroids and relies on the labels carried by the tasks.
package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Sector is one wedge of the field.
type Sector struct {
	ID       int
	Polygon  orb.Polygon // nil in data mode
	Centroid orb.Point
}

// ContainsPoint reports whether p lies inside or on the border of the wedge.
func (s *Sector) ContainsPoint(p orb.Point) bool {
	if s.Polygon == nil {
		return false
	}
	return planar.PolygonContains(s.Polygon, p) || onRing(s.Polygon[0], p)
}

// Field owns the sectors and the round-robin cursor used by centralized
// dispatch.
type Field struct {
	Centre  orb.Point
	Sectors []Sector

	euclidean bool
	cursor    int
}

// New cuts the polygon given by vertices into n equal-perimeter wedges. The
// walk starts at the midpoint of the first edge.
func New(vertices []orb.Point, centre orb.Point, n int) (*Field, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("field needs at least 3 vertices, got %d", len(vertices))
	}
	if n < 1 {
		return nil, fmt.Errorf("sector count must be positive, got %d", n)
	}

	start := midpoint(vertices[0], vertices[1])
	ring := make([]orb.Point, 0, len(vertices)+2)
	ring = append(ring, start)
	for i := 1; i <= len(vertices); i++ {
		ring = append(ring, vertices[i%len(vertices)])
	}
	ring = append(ring, start)

	arc := make([]float64, len(ring))
	for i := 1; i < len(ring); i++ {
		arc[i] = arc[i-1] + planar.Distance(ring[i-1], ring[i])
	}
	perimeter := arc[len(arc)-1]
	if perimeter == 0 {
		return nil, errors.New("field polygon is degenerate")
	}
	step := perimeter / float64(n)

	f := &Field{Centre: centre, Sectors: make([]Sector, n), euclidean: true, cursor: -1}
	j := 1
	from := start
	for k := 0; k < n; k++ {
		end := float64(k+1) * step
		pts := orb.Ring{from}
		for j < len(ring)-1 && arc[j] < end {
			if ring[j] != from {
				pts = append(pts, ring[j])
			}
			j++
		}
		var to orb.Point
		if k == n-1 {
			to = start
		} else {
			seg := arc[j] - arc[j-1]
			r := (end - arc[j-1]) / seg
			to = orb.Point{
				ring[j-1][0] + (ring[j][0]-ring[j-1][0])*r,
				ring[j-1][1] + (ring[j][1]-ring[j-1][1])*r,
			}
		}
		pts = append(pts, to, centre, from)

		poly := orb.Polygon{pts}
		c, _ := planar.CentroidArea(poly)
		f.Sectors[k] = Sector{ID: k, Polygon: poly, Centroid: c}
		from = to
	}
	return f, nil
}

// NewDataField builds a label-only field from sector centroids.
func NewDataField(centroids []orb.Point) (*Field, error) {
	if len(centroids) == 0 {
		return nil, errors.New("data field needs at least one centroid")
	}
	f := &Field{Sectors: make([]Sector, len(centroids)), cursor: -1}
	for i, c := range centroids {
		f.Sectors[i] = Sector{ID: i, Centroid: c}
		f.Centre[0] += c[0] / float64(len(centroids))
		f.Centre[1] += c[1] / float64(len(centroids))
	}
	return f, nil
}

// Len is the number of sectors.
func (f *Field) Len() int { return len(f.Sectors) }

// Euclidean reports whether sector membership is geometric.
func (f *Field) Euclidean() bool { return f.euclidean }

// Sector returns the sector with the given id.
func (f *Field) Sector(id int) *Sector {
	if id < 0 || id >= len(f.Sectors) {
		return nil
	}
	return &f.Sectors[id]
}

// Contains reports whether task t belongs to the given sector.
func (f *Field) Contains(sector int, t *model.Task) bool {
	if !f.euclidean {
		return t.Sector == sector
	}
	s := f.Sector(sector)
	return s != nil && s.ContainsPoint(t.Location)
}

// SectorOf returns the first sector containing p, or the one with the
// nearest centroid when p lies outside the field.
func (f *Field) SectorOf(p orb.Point) int {
	if f.euclidean {
		for i := range f.Sectors {
			if f.Sectors[i].ContainsPoint(p) {
				return i
			}
		}
	}
	best, bestD := 0, math.Inf(1)
	for i, s := range f.Sectors {
		if d := planar.DistanceSquared(s.Centroid, p); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// NextSector advances the round-robin cursor and returns the new sector.
// The first call returns sector 0.
func (f *Field) NextSector() *Sector {
	f.cursor = (f.cursor + 1) % len(f.Sectors)
	return &f.Sectors[f.cursor]
}

// Bound is the bounding box of all sector polygons or centroids.
func (f *Field) Bound() orb.Bound {
	var mp orb.MultiPoint
	for _, s := range f.Sectors {
		if s.Polygon != nil {
			mp = append(mp, s.Polygon[0]...)
		} else {
			mp = append(mp, s.Centroid)
		}
	}
	return mp.Bound()
}

func midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

func onRing(r orb.Ring, p orb.Point) bool {
	const eps = 1e-12
	for i := 1; i < len(r); i++ {
		a, b := r[i-1], r[i]
		if math.Abs(planar.Distance(a, p)+planar.Distance(p, b)-planar.Distance(a, b)) < eps {
			return true
		}
	}
	return false
}
