// Package dataset loads a clustered road-network dataset and exposes it as a
// network task generator with a travel-time table and detailed routes.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Node is one row of the nodes file.
type Node struct {
	Index   int
	Point   orb.Point
	Cluster int
	Depot   bool
}

// Edge is one row of the edges file.
type Edge struct {
	Src, Dst   int
	TravelTime float64
	Waypoints  orb.LineString
}

// header maps upper-cased column names to positions.
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return h, nil
}

func (h header) get(row []string, name string) (string, bool) {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func (h header) float(row []string, name string) (float64, error) {
	v, _ := h.get(row, name)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return f, nil
}

func (h header) int(row []string, name string) (int, error) {
	v, _ := h.get(row, name)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return int(f), nil
}

// ReadNodes parses a nodes file with X, Y and CLUSTER columns and an
// optional boolean DEPOT column. Row order gives the node index.
func ReadNodes(r io.Reader) ([]Node, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, "X", "Y", "CLUSTER")
	if err != nil {
		return nil, err
	}
	var nodes []Node
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		n := Node{Index: len(nodes)}
		if n.Point[0], err = h.float(row, "X"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n.Point[1], err = h.float(row, "Y"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n.Cluster, err = h.int(row, "CLUSTER"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if v, ok := h.get(row, "DEPOT"); ok && v != "" {
			if n.Depot, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("line %d: column DEPOT: %w", line, err)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ReadEdges parses an edges file with SRC_INDEX, DST_INDEX and TRAVEL_TIME
// columns. An optional SCALED_WAYPOINTS column holds "x:y;x:y" polylines.
func ReadEdges(r io.Reader) ([]Edge, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, "SRC_INDEX", "DST_INDEX", "TRAVEL_TIME")
	if err != nil {
		return nil, err
	}
	var edges []Edge
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var e Edge
		if e.Src, err = h.int(row, "SRC_INDEX"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if e.Dst, err = h.int(row, "DST_INDEX"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if e.TravelTime, err = h.float(row, "TRAVEL_TIME"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if e.TravelTime < 0 {
			return nil, fmt.Errorf("line %d: negative travel time", line)
		}
		if v, ok := h.get(row, "SCALED_WAYPOINTS"); ok && v != "" {
			if e.Waypoints, err = parseWaypoints(v); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func parseWaypoints(s string) (orb.LineString, error) {
	parts := strings.Split(s, ";")
	ls := make(orb.LineString, 0, len(parts))
	for _, p := range parts {
		xy := strings.SplitN(p, ":", 2)
		if len(xy) != 2 {
			return nil, fmt.Errorf("bad waypoint %q", p)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad waypoint %q: %w", p, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad waypoint %q: %w", p, err)
		}
		ls = append(ls, orb.Point{x, y})
	}
	return ls, nil
}

// EdgesPath derives the edges file name from a nodes file named
// "<base>.clustered.csv", giving "<base>.distances.csv".
func EdgesPath(nodes string) string {
	base := strings.TrimSuffix(nodes, ".csv")
	base = strings.TrimSuffix(base, ".clustered")
	return base + ".distances.csv"
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
