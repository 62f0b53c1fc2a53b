package dispatch

import (
	"github.com/kilianp07/dispatchsim/core/logger"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/paulmach/orb"
)

// commitOptions control how an optimized solution is handed to actors.
type commitOptions struct {
	policy   string
	eta      float64
	etaFirst bool
	gamma    float64
	noDepot  bool
}

// commit applies the solved tours to actors. Busy actors whose tour would
// admit a waiting task past the gamma threshold keep their previous path.
// Accepted actors receive the eta window of their tour, walked from the end
// nearer to them when it is a strict slice, followed by the tasks they
// already held and then the depot.
func commit(req *Request, actors []*model.Actor, p *Problem, sol Solution, opt commitOptions, log logger.Logger) (Outcome, error) {
	out := Outcome{Planned: true}
	index := make(map[*model.Task]int, len(p.M.Tasks))
	for i, t := range p.M.Tasks {
		index[t] = p.M.Actors + i
	}

	proposed := make([][]*model.Task, len(actors))
	for i, tour := range sol.Tours {
		for _, n := range tour[1:] {
			proposed[i] = append(proposed[i], p.M.Task(n))
		}
	}

	rejected := make(map[int]bool)
	for i, a := range actors {
		if ok, pos := Admit(a, proposed[i], opt.gamma); !ok {
			rejected[a.ID] = true
			out.Rejected = append(out.Rejected, a.ID)
			replanRejections.WithLabelValues(opt.policy).Inc()
			log.Debugf("actor %d replan rejected at t=%.2f: task %d waiting at stop %d/%d, threshold %d",
				a.ID, req.Now, proposed[i][pos].ID, pos+1, len(proposed[i]), Threshold(opt.gamma, len(proposed[i])))
		}
	}
	out.Replan = len(rejected) > 0

	pos := make(map[int]int, len(actors))
	for i, a := range actors {
		pos[a.ID] = i
	}
	placed := make(map[*model.Task]bool, len(index))
	paths := make([][]*model.Task, len(actors))
	for i, a := range actors {
		if rejected[a.ID] {
			continue
		}
		stops := make([]*model.Task, 0, len(proposed[i]))
		for _, t := range proposed[i] {
			if t.State == model.TaskAssigned && rejected[t.Holder] {
				continue
			}
			stops = append(stops, t)
		}
		start, n := Window(len(stops), opt.eta, opt.etaFirst, req.Rand)
		path := append([]*model.Task(nil), stops[start:start+n]...)
		if n < len(stops) {
			node := i
			orient(path, func(t *model.Task) float64 { return p.M.At(node, index[t]) })
		}
		for j, t := range stops {
			if (j < start || j >= start+n) && t.State == model.TaskAssigned {
				path = append(path, t)
			}
		}
		for _, t := range path {
			placed[t] = true
		}
		paths[i] = path
	}

	// assigned work that only showed up on a rejected tour goes back to its holder
	for _, t := range p.M.Tasks {
		if t.State != model.TaskAssigned || placed[t] || rejected[t.Holder] {
			continue
		}
		if j, ok := pos[t.Holder]; ok {
			paths[j] = append(paths[j], t)
			placed[t] = true
		}
	}

	for i, a := range actors {
		if rejected[a.ID] {
			continue
		}
		entries := make([]model.PathEntry, 0, len(paths[i])+1)
		prev := i
		for _, t := range paths[i] {
			if err := t.Commit(a.ID, req.Now); err != nil {
				return out, err
			}
			n := index[t]
			entries = append(entries, model.PathEntry{Task: t, LegCost: p.M.At(prev, n), HasCost: true})
			prev = n
			out.Committed = append(out.Committed, t.ID)
		}
		if !opt.noDepot {
			entries = append(entries, depotEntry(req, a, paths[i]))
		}
		a.SetPath(entries)
		a.CompletePath = snapshot(a, proposed[i])
	}
	return out, nil
}

func depotEntry(req *Request, a *model.Actor, path []*model.Task) model.PathEntry {
	depot := a.Depot()
	if req.Provider == nil {
		return model.PathEntry{Task: depot}
	}
	from := &model.Task{Location: a.Pos, Node: a.Node}
	if len(path) > 0 {
		from = path[len(path)-1]
	}
	return model.PathEntry{Task: depot, LegCost: req.Provider.Leg(from, depot), HasCost: true}
}

func snapshot(a *model.Actor, tour []*model.Task) []orb.Point {
	pts := make([]orb.Point, 0, len(tour)+2)
	pts = append(pts, a.Pos)
	for _, t := range tour {
		pts = append(pts, t.Location)
	}
	return append(pts, a.Home)
}
