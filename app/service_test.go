package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchsim/config"
	"github.com/kilianp07/dispatchsim/core/factory"
	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/core/sim"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Simulation: sim.Config{Seed: 3, Actors: 2, ArrivalRate: 1, MaxTasks: 15, Centralized: true},
		Policy:     factory.ModuleConfig{Type: "batch_wait", Conf: map[string]any{"max_solver_time": 0.1}},
		Records:    records.Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "records.jsonl")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceRunWritesRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	events := svc.Bus().Subscribe()
	st, err := svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, st.Serviced)
	assert.Equal(t, sim.StopMaxTasks, st.Reason)

	recs, err := svc.Store().Query(ctx, records.Query{RunID: st.RunID})
	require.NoError(t, err)
	assert.Len(t, recs, 15)

	var finished bool
	for len(events) > 0 {
		if ev := <-events; ev.Kind == sim.RunFinished {
			finished = true
		}
	}
	assert.True(t, finished || svc.Bus().Dropped() > 0)
}

func TestServiceSweep(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	svc, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	var seen []float64
	out, err := svc.Sweep(ctx, []float64{0.5, 2}, func(st sim.Stats) { seen = append(seen, st.Rate) })
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float64{0.5, 2}, seen)
	assert.NotEqual(t, out[0].RunID, out[1].RunID)
	assert.Equal(t, out, svc.Runs())
}

func TestServiceRejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy = factory.ModuleConfig{Type: "nope"}
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()
	_, err = svc.Run(context.Background(), nil)
	assert.ErrorContains(t, err, "policy")
}
