package dispatch

import (
	"context"

	"github.com/kilianp07/dispatchsim/core/model"
)

// RandomConfig configures the random assignment baseline.
type RandomConfig struct {
	Return  bool   `json:"return"` // head back to the depot once the queue empties
	Trigger string `json:"trigger"`
}

// RandomPolicy appends every waiting task to the path of a random actor.
type RandomPolicy struct {
	cfg     RandomConfig
	trigger Trigger
}

// NewRandom builds the baseline policy.
func NewRandom(cfg RandomConfig) (*RandomPolicy, error) {
	if cfg.Trigger == "" {
		cfg.Trigger = OnArrival.String()
	}
	trig, err := ParseTrigger(cfg.Trigger)
	if err != nil {
		return nil, err
	}
	return &RandomPolicy{cfg: cfg, trigger: trig}, nil
}

func (p *RandomPolicy) Name() string {
	if p.cfg.Return {
		return "random_return"
	}
	return "random"
}

// Plan implements Policy.
func (p *RandomPolicy) Plan(_ context.Context, req *Request) (Outcome, error) {
	actors := p.trigger.Select(req)
	if len(actors) == 0 {
		return Outcome{}, nil
	}
	out := Outcome{Planned: true}
	for _, t := range req.Tasks {
		if t.State != model.TaskWaiting {
			continue
		}
		a := actors[req.Rand.Intn(len(actors))]
		if err := t.Assign(a.ID, req.Now); err != nil {
			return out, err
		}
		p.appendTask(req, a, t)
		out.Committed = append(out.Committed, t.ID)
	}
	return out, nil
}

func (p *RandomPolicy) appendTask(req *Request, a *model.Actor, t *model.Task) {
	path := a.Path
	if n := len(path); n > 0 && path[n-1].Task.IsDepot() {
		path = path[:n-1]
	}
	prev := &model.Task{Location: a.Pos, Node: a.Node}
	if n := len(path); n > 0 {
		prev = path[n-1].Task
	}
	e := model.PathEntry{Task: t}
	if req.Provider != nil {
		e.LegCost, e.HasCost = req.Provider.Leg(prev, t), true
	}
	path = append(path, e)
	if p.cfg.Return {
		path = append(path, depotEntry(req, a, []*model.Task{t}))
	}
	a.SetPath(path)
}
