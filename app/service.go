package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/dispatchsim/api"
	"github.com/kilianp07/dispatchsim/config"
	"github.com/kilianp07/dispatchsim/core/dispatch"
	"github.com/kilianp07/dispatchsim/core/field"
	"github.com/kilianp07/dispatchsim/core/generator"
	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
	coremon "github.com/kilianp07/dispatchsim/core/monitoring"
	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/core/sim"
	_ "github.com/kilianp07/dispatchsim/infra/dataset"
	"github.com/kilianp07/dispatchsim/infra/logger"
	"github.com/kilianp07/dispatchsim/infra/metrics"
	infmon "github.com/kilianp07/dispatchsim/infra/monitoring"
	_ "github.com/kilianp07/dispatchsim/infra/mqtt"
	_ "github.com/kilianp07/dispatchsim/infra/nats"
	"github.com/kilianp07/dispatchsim/infra/relay"
	_ "github.com/kilianp07/dispatchsim/infra/webhook"
	"github.com/kilianp07/dispatchsim/infra/ws"
	"github.com/kilianp07/dispatchsim/internal/eventbus"
)

// Service owns the outputs shared by every run of one configuration:
// metric sinks, the record store, the event bus and the error monitor.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	sink    coremetrics.Sink
	store   records.Store
	monitor coremon.Monitor
	bus     *eventbus.Bus[sim.Event]
	hub     *ws.Hub
	relay   *relay.Relay

	mu   sync.Mutex
	runs []sim.Stats
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	mon, err := infmon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := records.Open(ctx, cfg.Records)
	if err != nil {
		closeSink(sink)
		return nil, fmt.Errorf("record store: %w", err)
	}
	svc := &Service{
		cfg:     cfg,
		log:     logg,
		sink:    sink,
		store:   store,
		monitor: mon,
		bus:     eventbus.New[sim.Event](0),
	}
	if cfg.WebSocket.Addr != "" {
		svc.hub = ws.NewHub()
	}
	if cfg.Redis.URL != "" {
		if svc.relay, err = relay.New(cfg.Redis); err != nil {
			_ = store.Close()
			closeSink(sink)
			return nil, fmt.Errorf("redis relay: %w", err)
		}
	}
	return svc, nil
}

// Bus returns the event bus every run publishes on.
func (s *Service) Bus() *eventbus.Bus[sim.Event] { return s.bus }

// Store returns the record store.
func (s *Service) Store() records.Store { return s.store }

// Runs returns the statistics of the finished runs, oldest first.
func (s *Service) Runs() []sim.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sim.Stats, len(s.runs))
	copy(out, s.runs)
	return out
}

// Serve starts the Prometheus, websocket and API endpoints and the Redis
// relay that are configured. They stop with ctx.
func (s *Service) Serve(ctx context.Context) {
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.hub != nil {
		s.hub.Follow(ctx, s.bus)
		go func() {
			if err := ws.Serve(ctx, s.cfg.WebSocket.Addr, s.hub); err != nil {
				s.log.Errorf("websocket server: %v", err)
			}
		}()
	}
	if s.relay != nil {
		s.relay.Follow(ctx, s.bus)
	}
	if addr := s.cfg.API.Addr; addr != "" {
		mux := api.NewMux(s.store, s.Runs, s.cfg.API.Token)
		go func() {
			if err := api.Serve(ctx, addr, mux); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
}

// NewSimulation builds one run from the configuration. The override is
// applied on top of the simulation section.
func (s *Service) NewSimulation(override func(*sim.Config)) (*sim.Simulation, error) {
	simCfg := s.cfg.Simulation
	if override != nil {
		override(&simCfg)
	}
	gen, err := generator.Registry.Create(s.cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	policy, err := dispatch.Registry.Create(s.cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	var f *field.Field
	if _, ok := gen.(generator.FieldSource); !ok {
		if f, err = s.cfg.Field.Build(); err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}
	}
	sm, err := sim.New(simCfg, f, gen, policy, logger.New("simulation"))
	if err != nil {
		return nil, err
	}
	sm.SetSink(s.sink)
	sm.SetStore(s.store)
	sm.SetBus(s.bus)
	sm.SetMonitor(s.monitor)
	return sm, nil
}

// Run executes one simulation.
func (s *Service) Run(ctx context.Context, override func(*sim.Config)) (sim.Stats, error) {
	sm, err := s.NewSimulation(override)
	if err != nil {
		return sim.Stats{}, err
	}
	s.log.Infof("run %s started: policy=%s rate=%.3f tasks=%d", sm.RunID(), sm.Stats().Policy, sm.Stats().Rate, len(sm.Tasks()))
	st, err := sm.Run(ctx)
	if err != nil {
		return st, err
	}
	s.mu.Lock()
	s.runs = append(s.runs, st)
	s.mu.Unlock()
	return st, nil
}

// Sweep runs the configuration once per arrival rate with the same seed.
// It stops at the first failed run.
func (s *Service) Sweep(ctx context.Context, rates []float64, each func(sim.Stats)) ([]sim.Stats, error) {
	out := make([]sim.Stats, 0, len(rates))
	for _, rate := range rates {
		st, err := s.Run(ctx, func(c *sim.Config) { c.ArrivalRate = rate })
		if err != nil {
			return out, fmt.Errorf("rate %g: %w", rate, err)
		}
		if each != nil {
			each(st)
		}
		out = append(out, st)
	}
	return out, nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.hub != nil {
		s.hub.Close()
	}
	s.bus.Close()
	if s.relay != nil {
		if err := s.relay.Close(); err != nil {
			s.log.Warnf("redis relay close: %v", err)
		}
	}
	closeSink(s.sink)
	s.monitor.Flush(2 * time.Second)
	return s.store.Close()
}

func closeSink(sink coremetrics.Sink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range v.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	case interface{ Disconnect() }:
		v.Disconnect()
	}
}
