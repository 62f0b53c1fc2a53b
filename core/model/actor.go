package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MotionMode selects how an actor advances along a leg.
type MotionMode int

const (
	// MotionDirect moves speed*dt along the straight line each tick.
	MotionDirect MotionMode = iota
	// MotionTravelTime extrapolates position from elapsed leg time.
	MotionTravelTime
)

func (m MotionMode) String() string {
	if m == MotionTravelTime {
		return "travel_time"
	}
	return "direct"
}

// ParseMotion maps a config string to a MotionMode. Empty means direct.
func ParseMotion(s string) (MotionMode, error) {
	switch strings.ToLower(s) {
	case "", "direct":
		return MotionDirect, nil
	case "travel_time", "traveltime":
		return MotionTravelTime, nil
	default:
		return MotionDirect, fmt.Errorf("unknown motion mode %q", s)
	}
}

// PathEntry is one committed stop. LegCost is the planned cost of reaching
// Task from the previous stop and is only meaningful when HasCost is set.
type PathEntry struct {
	Task    *Task
	LegCost float64
	HasCost bool
}

// PathSource supplies detailed routes between network nodes.
type PathSource interface {
	DetailedPath(src, dst int) (orb.LineString, bool)
}

// Actor is a mobile server. It is owned by the simulation loop and only
// mutated by its own Tick and by SetPath.
type Actor struct {
	ID          int
	Pos         orb.Point
	Node        int // last network node reached, NoNode in Euclidean mode
	Home        orb.Point
	HomeNode    int
	Sector      int
	Speed       float64
	ServiceTime float64 // dwell for tasks without their own service time
	Mode        MotionMode

	// TimedCosts marks leg costs as travel times rather than distances.
	TimedCosts bool

	Travelled float64
	Heading   float64 // radians, direction of last movement

	// Path is the committed path; it ends with the depot sentinel once a
	// policy has planned the actor.
	Path []PathEntry
	// CompletePath is the last full optimized tour, for reporting only.
	CompletePath []orb.Point

	Routes PathSource

	depot *Task

	leg        *Task
	legTime    float64
	legElapsed float64
	legFrom    orb.Point
	legRoute   orb.LineString
	ratio      float64

	serving   *Task
	arrivedAt float64
}

// NewActor places an actor at its depot.
func NewActor(id int, home orb.Point, homeNode int, speed float64, mode MotionMode) *Actor {
	if speed <= 0 {
		speed = 1
	}
	return &Actor{
		ID:       id,
		Pos:      home,
		Node:     homeNode,
		Home:     home,
		HomeNode: homeNode,
		Speed:    speed,
		Mode:     mode,
		depot:    NewDepot(id, home, homeNode),
	}
}

// Depot returns the actor's return-to-depot sentinel.
func (a *Actor) Depot() *Task {
	if a.depot == nil {
		a.depot = NewDepot(a.ID, a.Home, a.HomeNode)
	}
	return a.depot
}

// Busy reports whether the actor is serving or still has real stops queued.
func (a *Actor) Busy() bool {
	return a.serving != nil || a.Queue() > 0
}

// Serving returns the task currently in dwell, if any.
func (a *Actor) Serving() *Task { return a.serving }

// Remaining is the dwell left at now on the task being served.
func (a *Actor) Remaining(now float64) float64 {
	if a.serving == nil {
		return 0
	}
	return math.Max(0, a.arrivedAt+a.Dwell(a.serving)-now)
}

// Queue counts the non-depot entries of the committed path.
func (a *Actor) Queue() int {
	n := 0
	for _, e := range a.Path {
		if !e.Task.IsDepot() {
			n++
		}
	}
	return n
}

// HeldTasks returns the non-depot tasks on the committed path in order.
func (a *Actor) HeldTasks() []*Task {
	out := make([]*Task, 0, len(a.Path))
	for _, e := range a.Path {
		if !e.Task.IsDepot() {
			out = append(out, e.Task)
		}
	}
	return out
}

// SetPath replaces the committed path. The current leg continues if the new
// head is the task already being approached.
func (a *Actor) SetPath(path []PathEntry) {
	a.Path = path
}

// LegProgress describes the leg in flight. ok is false when the actor is
// not between two nodes.
func (a *Actor) LegProgress() (from, to int, ratio float64, ok bool) {
	if a.leg == nil || a.serving != nil || a.Mode != MotionTravelTime {
		return a.Node, a.Node, 0, false
	}
	return a.Node, a.leg.Node, a.ratio, true
}

// Dwell is the service duration the actor spends at t.
func (a *Actor) Dwell(t *Task) float64 {
	if t.IsDepot() {
		return 0
	}
	if t.ServiceTime > 0 {
		return t.ServiceTime
	}
	return math.Max(a.ServiceTime, 0)
}

// Tick advances the actor by dt ending at now. It returns the tasks whose
// dwell finished during this tick, in completion order. An actor whose dwell
// ends moves on toward its next stop in the same tick. The caller stamps
// completion.
func (a *Actor) Tick(now, dt float64) ([]*Task, error) {
	var done []*Task
	if a.serving != nil {
		t := a.finishDwell(now)
		if t == nil {
			return nil, nil
		}
		done = append(done, t)
	}
	t, err := a.travel(now, dt)
	if err != nil {
		return done, err
	}
	if t != nil {
		done = append(done, t)
	}
	return done, nil
}

// travel moves toward the path head and starts service on arrival.
func (a *Actor) travel(now, dt float64) (*Task, error) {
	if len(a.Path) == 0 {
		return nil, nil
	}

	head := a.Path[0]
	if head.Task.State == TaskServiced || head.Task.State == TaskInService {
		return nil, &InvariantError{
			TaskID:  head.Task.ID,
			ActorID: a.ID,
			SimTime: now,
			Op:      "travel to",
			From:    head.Task.State,
			To:      TaskInService,
		}
	}
	if a.leg != head.Task {
		a.startLeg(head)
	}

	var arrived bool
	if a.Mode == MotionTravelTime {
		arrived = a.moveTimed(dt)
	} else {
		arrived = a.moveDirect(dt)
	}
	if !arrived {
		return nil, nil
	}

	a.Path = a.Path[1:]
	a.leg = nil
	a.ratio = 0
	if head.Task.Node != NoNode {
		a.Node = head.Task.Node
	}
	if head.Task.IsDepot() {
		return nil, nil
	}
	if err := head.Task.Begin(a.ID, now); err != nil {
		return nil, err
	}
	a.serving = head.Task
	a.arrivedAt = now
	return a.finishDwell(now), nil
}

func (a *Actor) finishDwell(now float64) *Task {
	const eps = 1e-9
	if now-a.arrivedAt+eps < a.Dwell(a.serving) {
		return nil
	}
	done := a.serving
	a.serving = nil
	return done
}

func (a *Actor) startLeg(e PathEntry) {
	if prev := a.leg; prev != nil && a.ratio >= 0.5 && prev.Node != NoNode {
		a.Node = prev.Node
	}
	a.leg = e.Task
	a.legFrom = a.Pos
	a.legElapsed = 0
	a.ratio = 0
	a.legRoute = nil

	switch {
	case e.HasCost && a.TimedCosts:
		a.legTime = e.LegCost
	case e.HasCost:
		a.legTime = e.LegCost / a.Speed
	default:
		a.legTime = planar.Distance(a.Pos, e.Task.Location) / a.Speed
	}
	if a.Mode == MotionTravelTime && a.Routes != nil && a.Node != NoNode && e.Task.Node != NoNode {
		if ls, ok := a.Routes.DetailedPath(a.Node, e.Task.Node); ok && len(ls) > 0 {
			route := make(orb.LineString, 0, len(ls)+2)
			route = append(route, a.legFrom)
			route = append(route, ls...)
			route = append(route, e.Task.Location)
			a.legRoute = route
		}
	}
}

func (a *Actor) moveDirect(dt float64) bool {
	target := a.leg.Location
	step := a.Speed * dt
	d := planar.Distance(a.Pos, target)
	if d <= step {
		a.advanceTo(target)
		return true
	}
	f := step / d
	a.advanceTo(orb.Point{
		a.Pos[0] + (target[0]-a.Pos[0])*f,
		a.Pos[1] + (target[1]-a.Pos[1])*f,
	})
	return false
}

func (a *Actor) moveTimed(dt float64) bool {
	a.legElapsed += dt
	if a.legTime <= 0 || a.legElapsed >= a.legTime {
		a.ratio = 1
		a.advanceTo(a.leg.Location)
		return true
	}
	a.ratio = a.legElapsed / a.legTime
	route := a.legRoute
	if route == nil {
		route = orb.LineString{a.legFrom, a.leg.Location}
	}
	a.advanceTo(interpolate(route, a.ratio))
	return false
}

func (a *Actor) advanceTo(p orb.Point) {
	d := planar.Distance(a.Pos, p)
	if d > 0 {
		a.Heading = math.Atan2(p[1]-a.Pos[1], p[0]-a.Pos[0])
		a.Travelled += d
	}
	a.Pos = p
}

// interpolate returns the point at fraction r of the polyline's length.
func interpolate(ls orb.LineString, r float64) orb.Point {
	total := planar.Length(ls)
	if total == 0 || r <= 0 {
		return ls[0]
	}
	if r >= 1 {
		return ls[len(ls)-1]
	}
	want := total * r
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if seg >= want && seg > 0 {
			f := want / seg
			return orb.Point{
				ls[i-1][0] + (ls[i][0]-ls[i-1][0])*f,
				ls[i-1][1] + (ls[i][1]-ls[i-1][1])*f,
			}
		}
		want -= seg
	}
	return ls[len(ls)-1]
}
