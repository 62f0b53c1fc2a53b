package metrics_test

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dispatchsim/core/factory"
	metrics "github.com/kilianp07/dispatchsim/core/metrics"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordCompletion(metrics.CompletionEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordReplan(metrics.ReplanEvent) error {
	r.count++
	return nil
}

// completionOnly supports no optional recorder.
type completionOnly struct{ count int }

func (c *completionOnly) RecordCompletion(metrics.CompletionEvent) error {
	c.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &completionOnly{}
	m := metrics.NewMultiSink(s1, s2)
	if err := m.RecordCompletion(metrics.CompletionEvent{}); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if err := m.RecordReplan(metrics.ReplanEvent{}); err != nil {
		t.Fatalf("record replan: %v", err)
	}
	if err := m.RecordRunSummary(metrics.RunSummary{}); err != nil {
		t.Fatalf("record summary: %v", err)
	}
	if s1.count != 2 || s2.count != 1 {
		t.Fatalf("events not forwarded: %d %d", s1.count, s2.count)
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &completionOnly{}
	err := metrics.NewMultiSink(s1, s2).RecordCompletion(metrics.CompletionEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.count != 0 {
		t.Fatalf("second sink should not be called")
	}
}

func TestNewSink(t *testing.T) {
	s, err := metrics.NewSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	s, err = metrics.NewSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
	if _, err := metrics.NewSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestConfigDecode(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: nop
prometheus_addr: ":2112"
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if len(cfg.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(cfg.Sinks))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	var bad metrics.Config
	if err := json.Unmarshal([]byte(`{"sinks":[{"conf":{}}]}`), &bad); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected missing type error")
	}
}
