package config

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/kilianp07/dispatchsim/core/field"
)

// FieldConfig describes the service polygon and its sector count.
type FieldConfig struct {
	// Vertices lists the polygon corners as [x, y] pairs.
	Vertices [][]float64 `json:"vertices"`
	Centre   []float64   `json:"centre"`
	// Sectors defaults to the actor count.
	Sectors int `json:"sectors"`
}

// SetDefaults uses the square [-1,1]^2 centred on the origin.
func (c *FieldConfig) SetDefaults(actors int) {
	if len(c.Vertices) == 0 {
		c.Vertices = [][]float64{{-1, -1}, {-1, 1}, {1, 1}, {1, -1}}
	}
	if len(c.Centre) == 0 {
		c.Centre = []float64{0, 0}
	}
	if c.Sectors == 0 {
		c.Sectors = actors
	}
}

// Validate checks shapes.
func (c FieldConfig) Validate() error {
	if len(c.Vertices) < 3 {
		return errors.New("at least 3 vertices are required")
	}
	for _, v := range c.Vertices {
		if len(v) != 2 {
			return errors.New("vertices must be [x, y] pairs")
		}
	}
	if len(c.Centre) != 2 {
		return errors.New("centre must be an [x, y] pair")
	}
	if c.Sectors < 1 {
		return errors.New("sectors must be >= 1")
	}
	return nil
}

// Build creates the sectorized field.
func (c FieldConfig) Build() (*field.Field, error) {
	pts := make([]orb.Point, len(c.Vertices))
	for i, v := range c.Vertices {
		pts[i] = orb.Point{v[0], v[1]}
	}
	return field.New(pts, orb.Point{c.Centre[0], c.Centre[1]}, c.Sectors)
}
