// Package sim runs the discrete-time dispatch loop: it activates arriving
// tasks, asks the policy to replan, moves the actors and keeps statistics.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/kilianp07/dispatchsim/core/dispatch"
	"github.com/kilianp07/dispatchsim/core/distance"
	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/generator"
	"github.com/kilianp07/dispatchsim/core/logger"
	"github.com/kilianp07/dispatchsim/core/metrics"
	"github.com/kilianp07/dispatchsim/core/model"
	"github.com/kilianp07/dispatchsim/core/monitoring"
	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/internal/eventbus"
)

// State is the lifecycle of a Simulation.
type State int

const (
	Running State = iota
	Terminated
)

// Simulation owns the task arena and the actors of one run.
type Simulation struct {
	cfg      Config
	runID    string
	field    *field.Field
	gen      generator.Generator
	policy   dispatch.Policy
	provider *distance.Provider
	rng      *rand.Rand
	log      logger.Logger

	sink    metrics.Sink
	store   records.Store
	bus     *eventbus.Bus[Event]
	monitor monitoring.Monitor

	actors []*model.Actor
	tasks  []model.Task
	next   int           // first task not yet activated
	open   []*model.Task // activated and not serviced, in arrival order
	dirty  []bool        // per sector: arrival or retry pending

	now   float64
	state State
	stats Stats
}

// New prepares a run: it seeds the RNG, draws the task stream and places the
// actors at their sector centroids. f may be nil when the generator brings
// its own field.
func New(cfg Config, f *field.Field, gen generator.Generator, policy dispatch.Policy, log logger.Logger) (*Simulation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil || policy == nil {
		return nil, errors.New("simulation: generator and policy are required")
	}
	if fs, ok := gen.(generator.FieldSource); ok && fs.Field() != nil {
		f = fs.Field()
	}
	if f == nil || f.Len() == 0 {
		return nil, errors.New("simulation: field without sectors")
	}
	if !cfg.Centralized && cfg.Actors != f.Len() {
		return nil, fmt.Errorf("simulation: decentralized runs need one actor per sector (%d actors, %d sectors)", cfg.Actors, f.Len())
	}

	s := &Simulation{
		cfg:      cfg,
		runID:    uuid.NewString(),
		field:    f,
		gen:      gen,
		policy:   policy,
		provider: distance.NewEuclidean(),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		log:      logger.OrNop(log),
		sink:     metrics.NopSink{},
		store:    records.Nop{},
		monitor:  monitoring.NopMonitor{},
		dirty:    make([]bool, f.Len()),
	}
	if ts, ok := gen.(generator.TableSource); ok && !gen.Euclidean() {
		s.provider = distance.NewNetwork(ts.Table())
	}
	if ls, ok := policy.(dispatch.LoggerSetter); ok && log != nil {
		ls.SetLogger(log)
	}

	gen.Reset(s.rng)
	tasks, first, err := gen.DrawTasks(cfg.ArrivalRate, f)
	if err != nil {
		return nil, fmt.Errorf("draw tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil, generator.ErrNoTasks
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Arrival < tasks[j].Arrival })
	s.tasks = tasks

	if err := s.placeActors(); err != nil {
		return nil, err
	}
	s.stats = Stats{
		RunID:        s.runID,
		Policy:       policy.Name(),
		Rate:         cfg.ArrivalRate,
		Generated:    len(tasks),
		FirstArrival: first,
	}
	return s, nil
}

func (s *Simulation) placeActors() error {
	mode, err := model.ParseMotion(s.cfg.Motion)
	if err != nil {
		return err
	}
	if s.cfg.Motion == "" && !s.provider.Euclidean() {
		mode = model.MotionTravelTime
	}
	loc, _ := s.gen.(generator.Locator)
	routes, _ := s.gen.(model.PathSource)

	s.actors = make([]*model.Actor, s.cfg.Actors)
	for i := range s.actors {
		sector := s.field.Sector(i % s.field.Len())
		home, node := sector.Centroid, model.NoNode
		if len(s.cfg.Depot) == 2 {
			home = orb.Point{s.cfg.Depot[0], s.cfg.Depot[1]}
		}
		if loc != nil && !s.provider.Euclidean() {
			node, home = loc.NearestLocation(sector.ID, sector.Centroid)
		}
		a := model.NewActor(i, home, node, s.cfg.Speed, mode)
		a.Sector = sector.ID
		a.ServiceTime = s.cfg.ServiceTime
		a.TimedCosts = !s.provider.Euclidean()
		if routes != nil {
			a.Routes = routes
		}
		s.actors[i] = a
	}
	return nil
}

// SetSink routes completions, replans and snapshots to sink.
func (s *Simulation) SetSink(sink metrics.Sink) {
	if sink != nil {
		s.sink = sink
	}
}

// SetStore persists one record per serviced task.
func (s *Simulation) SetStore(store records.Store) {
	if store != nil {
		s.store = store
	}
}

// SetBus publishes run events on bus.
func (s *Simulation) SetBus(bus *eventbus.Bus[Event]) { s.bus = bus }

// SetMonitor reports fatal errors to m.
func (s *Simulation) SetMonitor(m monitoring.Monitor) {
	if m != nil {
		s.monitor = m
	}
}

// SetRunID overrides the generated run id.
func (s *Simulation) SetRunID(id string) {
	s.runID = id
	s.stats.RunID = id
}

func (s *Simulation) RunID() string                { return s.runID }
func (s *Simulation) Now() float64                 { return s.now }
func (s *Simulation) State() State                 { return s.state }
func (s *Simulation) Field() *field.Field          { return s.field }
func (s *Simulation) Actors() []*model.Actor       { return s.actors }
func (s *Simulation) Tasks() []model.Task          { return s.tasks }
func (s *Simulation) Stats() Stats                 { return s.stats }
func (s *Simulation) Provider() *distance.Provider { return s.provider }

// Census counts every task of the arena by state.
func (s *Simulation) Census() Census {
	var c Census
	for i := range s.tasks {
		if i >= s.next {
			c.Pending++
			continue
		}
		switch s.tasks[i].State {
		case model.TaskWaiting:
			c.Waiting++
		case model.TaskAssigned:
			c.Assigned++
		case model.TaskInService:
			c.InService++
		case model.TaskServiced:
			c.Serviced++
		}
	}
	return c
}

// Run steps the simulation until it terminates or ctx is done. An invariant
// violation aborts the run and is returned as is.
func (s *Simulation) Run(ctx context.Context) (Stats, error) {
	s.log.Infof("run %s: policy=%s rate=%.3f actors=%d tasks=%d", s.runID, s.policy.Name(), s.cfg.ArrivalRate, len(s.actors), len(s.tasks))
	for s.state == Running {
		if err := ctx.Err(); err != nil {
			s.stats.Reason = StopCanceled
			s.finish()
			return s.stats, err
		}
		if err := s.Step(ctx); err != nil {
			s.fail(err)
			return s.stats, err
		}
	}
	return s.stats, nil
}

func (s *Simulation) fail(err error) {
	s.state = Terminated
	s.log.Errorf("run %s aborted at t=%.3f: %v", s.runID, s.now, err)
	s.monitor.CaptureException(err, monitoring.Tags(err, s.runID))
}

// Step advances the clock by one tick.
func (s *Simulation) Step(ctx context.Context) error {
	if s.state == Terminated {
		return nil
	}
	s.now += s.cfg.Tick
	s.stats.Ticks++
	s.stats.SimTime = s.now

	s.activate()
	if err := s.replan(ctx); err != nil {
		return err
	}
	if err := s.move(); err != nil {
		return err
	}
	if s.state == Terminated {
		return nil
	}
	s.observe()
	if r := s.stopReason(); r != StopNone {
		s.stats.Reason = r
		s.finish()
	}
	return nil
}

func (s *Simulation) activate() {
	for s.next < len(s.tasks) && s.tasks[s.next].Arrival <= s.now {
		t := &s.tasks[s.next]
		s.next++
		s.open = append(s.open, t)
		s.dirty[s.sectorIndex(t)] = true
		s.stats.Activated++
		s.publish(Event{Kind: TaskActivated, TaskID: t.ID, Sector: t.Sector})
	}
}

func (s *Simulation) sectorIndex(t *model.Task) int {
	if s.field.Len() == 1 {
		return 0
	}
	if t.Sector >= 0 && t.Sector < s.field.Len() {
		return t.Sector
	}
	return s.field.SectorOf(t.Location)
}

func (s *Simulation) inSector(sector int, t *model.Task) bool {
	return s.field.Len() == 1 || s.sectorIndex(t) == sector || s.field.Contains(sector, t)
}

func (s *Simulation) replan(ctx context.Context) error {
	if s.cfg.Centralized {
		sector := s.field.NextSector().ID
		var tasks []*model.Task
		for _, t := range s.open {
			switch t.State {
			case model.TaskWaiting:
				if s.inSector(sector, t) {
					tasks = append(tasks, t)
				}
			case model.TaskAssigned:
				tasks = append(tasks, t)
			}
		}
		return s.plan(ctx, sector, s.actors, tasks)
	}
	for _, a := range s.actors {
		var tasks []*model.Task
		for _, t := range s.open {
			switch {
			case t.State == model.TaskWaiting && s.inSector(a.Sector, t):
				tasks = append(tasks, t)
			case t.State == model.TaskAssigned && t.Holder == a.ID:
				tasks = append(tasks, t)
			}
		}
		if err := s.plan(ctx, a.Sector, []*model.Actor{a}, tasks); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) plan(ctx context.Context, sector int, actors []*model.Actor, tasks []*model.Task) error {
	arrival := s.dirty[sector]
	s.dirty[sector] = false
	out, err := s.policy.Plan(ctx, &dispatch.Request{
		Now:        s.now,
		Actors:     actors,
		Tasks:      tasks,
		NewArrival: arrival,
		Field:      s.field,
		Provider:   s.provider,
		Rand:       s.rng,
	})
	if err != nil {
		return fmt.Errorf("replan sector %d at t=%.3f: %w", sector, s.now, err)
	}
	if out.Replan {
		s.dirty[sector] = true
	}
	if !out.Planned {
		return nil
	}
	name := s.policy.Name()
	s.stats.Replans++
	s.stats.Rejections += len(out.Rejected)
	replans.WithLabelValues(name).Inc()
	if rec, ok := s.sink.(metrics.ReplanRecorder); ok {
		if err := rec.RecordReplan(metrics.ReplanEvent{
			RunID:      s.runID,
			Policy:     name,
			SimTime:    s.now,
			Sector:     sector,
			Actors:     len(actors),
			Planned:    len(tasks),
			Committed:  len(out.Committed),
			Rejected:   len(out.Rejected),
			Iterations: out.Solver.Iterations,
			Cost:       out.Solver.BestCost,
			Stop:       string(out.Solver.Stop),
			Elapsed:    out.Solver.Elapsed,
		}); err != nil {
			s.log.Warnf("record replan: %v", err)
		}
	}
	s.publish(Event{Kind: ReplanCompleted, Sector: sector, Committed: len(out.Committed)})
	for _, id := range out.Rejected {
		s.publish(Event{Kind: ReplanRejected, Sector: sector, Actor: id})
	}
	return nil
}

// move ticks every actor and completes what they finished.
func (s *Simulation) move() error {
	harvested := false
actors:
	for _, a := range s.actors {
		done, err := a.Tick(s.now, s.cfg.Tick)
		for _, t := range done {
			if err := s.complete(a, t); err != nil {
				return err
			}
			harvested = true
			if s.cfg.MaxTime == 0 && s.cfg.MaxTasks > 0 && s.stats.Serviced >= s.cfg.MaxTasks {
				s.stats.Reason = StopMaxTasks
				s.finish()
				break actors
			}
		}
		if err != nil {
			return err
		}
	}
	if harvested {
		s.compact()
	}
	return nil
}

func (s *Simulation) complete(a *model.Actor, t *model.Task) error {
	if err := t.Complete(s.now); err != nil {
		return err
	}
	wait, err := t.Wait()
	if err != nil {
		return err
	}
	s.stats.Serviced++
	s.stats.WaitSum += wait
	s.stats.MaxWait = math.Max(s.stats.MaxWait, wait)
	name := s.policy.Name()
	tasksServiced.WithLabelValues(name).Inc()
	taskWait.WithLabelValues(name).Observe(wait)

	rec := records.Record{
		RunID:       s.runID,
		ID:          t.ID,
		X:           t.Location[0],
		Y:           t.Location[1],
		Arrival:     t.Arrival,
		Completion:  t.Completed,
		InitialWait: t.InitialWait,
		Wait:        wait,
		Actor:       a.ID,
		Sector:      t.Sector,
		ServiceTime: t.ServiceTime,
	}
	if err := s.store.Append(context.Background(), rec); err != nil {
		s.log.Warnf("store record %d: %v", t.ID, err)
	}
	if err := s.sink.RecordCompletion(metrics.CompletionEvent{
		RunID:       s.runID,
		TaskID:      t.ID,
		Actor:       a.ID,
		Sector:      t.Sector,
		X:           t.Location[0],
		Y:           t.Location[1],
		Arrival:     t.Arrival,
		Completion:  t.Completed,
		Wait:        wait,
		ServiceTime: t.ServiceTime,
	}); err != nil {
		s.log.Warnf("record completion %d: %v", t.ID, err)
	}
	s.publish(Event{Kind: TaskServiced, TaskID: t.ID, Actor: a.ID, Sector: t.Sector, Wait: wait})
	return nil
}

func (s *Simulation) compact() {
	kept := s.open[:0]
	for _, t := range s.open {
		if t.State != model.TaskServiced {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.open); i++ {
		s.open[i] = nil
	}
	s.open = kept
}

// observe refreshes the per-tick statistics and snapshots.
func (s *Simulation) observe() {
	s.stats.MaxQueue = max(s.stats.MaxQueue, len(s.open))
	s.stats.MaxQueueAge = 0
	for _, t := range s.open {
		s.stats.MaxQueueAge = math.Max(s.stats.MaxQueueAge, t.AccruedWait(s.now))
	}
	s.travel()
	name := s.policy.Name()
	queueLength.WithLabelValues(name).Set(float64(len(s.open)))
	simClock.WithLabelValues(name).Set(s.now)

	if s.cfg.SnapshotEvery == 0 || s.stats.Ticks%s.cfg.SnapshotEvery != 0 {
		return
	}
	rec, ok := s.sink.(metrics.ActorStateRecorder)
	if !ok {
		return
	}
	for _, a := range s.actors {
		if err := rec.RecordActorState(metrics.ActorStateEvent{
			RunID:     s.runID,
			Actor:     a.ID,
			SimTime:   s.now,
			X:         a.Pos[0],
			Y:         a.Pos[1],
			Heading:   a.Heading,
			Busy:      a.Busy(),
			Queue:     a.Queue(),
			Travelled: a.Travelled,
		}); err != nil {
			s.log.Warnf("record actor %d: %v", a.ID, err)
		}
	}
}

func (s *Simulation) travel() {
	s.stats.TotalTravel, s.stats.MaxTravel = 0, 0
	for _, a := range s.actors {
		s.stats.TotalTravel += a.Travelled
		s.stats.MaxTravel = math.Max(s.stats.MaxTravel, a.Travelled)
	}
}

func (s *Simulation) stopReason() StopReason {
	switch {
	case s.cfg.MaxTime > 0 && s.now > s.cfg.MaxTime:
		return StopMaxTime
	case s.cfg.MaxTime == 0 && s.cfg.MaxTasks > 0 && s.stats.Serviced >= s.cfg.MaxTasks:
		return StopMaxTasks
	case s.next == len(s.tasks) && len(s.open) == 0:
		return StopExhausted
	}
	return StopNone
}

// finish terminates the run and reports the summary.
func (s *Simulation) finish() {
	if s.state == Terminated {
		return
	}
	s.state = Terminated
	s.travel()
	s.stats.SimTime = s.now
	st := s.stats
	if rec, ok := s.sink.(metrics.RunSummaryRecorder); ok {
		if err := rec.RecordRunSummary(st.Summary()); err != nil {
			s.log.Warnf("record summary: %v", err)
		}
	}
	s.publish(Event{Kind: RunFinished, Stats: &st})
	s.log.Infof("run %s finished (%s) at t=%.2f: serviced=%d avg_wait=%.3f max_wait=%.3f travel=%.3f replans=%d rejections=%d",
		s.runID, st.Reason, st.SimTime, st.Serviced, st.AvgWait(), st.MaxWait, st.TotalTravel, st.Replans, st.Rejections)
}

func (s *Simulation) publish(e Event) {
	if s.bus == nil {
		return
	}
	e.RunID = s.runID
	e.SimTime = s.now
	s.bus.Publish(e)
}
