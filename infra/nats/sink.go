// Package nats publishes simulation metrics on NATS subjects.
package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	natsgo "github.com/nats-io/nats.go"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
	"github.com/kilianp07/dispatchsim/infra/logger"
)

// Config defines the connection and subject layout.
type Config struct {
	URL            string `json:"url"`
	Name           string `json:"name"`
	SubjectPrefix  string `json:"subject_prefix"`
	Token          string `json:"token"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Replans        bool   `json:"replans"`
	FlushTimeoutMS int    `json:"flush_timeout_ms"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = natsgo.DefaultURL
	}
	if c.Name == "" {
		c.Name = "dispatchsim"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "dispatchsim"
	}
	if c.FlushTimeoutMS <= 0 {
		c.FlushTimeoutMS = 2000
	}
}

// Validate checks mutually exclusive credentials.
func (c Config) Validate() error {
	if c.Token != "" && c.Username != "" {
		return errors.New("nats: token and username are mutually exclusive")
	}
	return nil
}

type conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

var connect = func(c Config) (conn, error) {
	opts := []natsgo.Option{natsgo.Name(c.Name)}
	if c.Token != "" {
		opts = append(opts, natsgo.Token(c.Token))
	}
	if c.Username != "" {
		opts = append(opts, natsgo.UserInfo(c.Username, c.Password))
	}
	return natsgo.Connect(c.URL, opts...)
}

// Sink publishes completions, replans when enabled, and run summaries.
type Sink struct {
	cfg    Config
	nc     conn
	log    logger.Logger
	failed atomic.Uint64
}

// NewSink connects to the configured server.
func NewSink(cfg Config) (*Sink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nc, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}
	return &Sink{cfg: cfg, nc: nc, log: logger.New("nats")}, nil
}

// Subject joins the prefix, the run and the message kind.
func (s *Sink) Subject(runID, kind string) string {
	return s.cfg.SubjectPrefix + "." + runID + "." + kind
}

func (s *Sink) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.nc.Publish(subject, data); err != nil {
		s.failed.Add(1)
		s.log.Warnf("publish %s: %v", subject, err)
		return err
	}
	return nil
}

type completionMessage struct {
	TaskID      int     `json:"task_id"`
	Actor       int     `json:"actor"`
	Sector      int     `json:"sector"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Arrival     float64 `json:"arrival"`
	Completion  float64 `json:"completion"`
	Wait        float64 `json:"wait"`
	ServiceTime float64 `json:"service_time"`
}

type replanMessage struct {
	Policy     string  `json:"policy"`
	SimTime    float64 `json:"sim_time"`
	Sector     int     `json:"sector"`
	Committed  int     `json:"committed"`
	Rejected   int     `json:"rejected"`
	Iterations int     `json:"iterations"`
	Cost       float64 `json:"cost"`
	Stop       string  `json:"stop,omitempty"`
	ElapsedMS  float64 `json:"elapsed_ms"`
}

type summaryMessage struct {
	RunID       string  `json:"run_id"`
	Policy      string  `json:"policy"`
	Rate        float64 `json:"rate"`
	SimTime     float64 `json:"sim_time"`
	Serviced    int     `json:"serviced"`
	AvgWait     float64 `json:"avg_wait"`
	MaxWait     float64 `json:"max_wait"`
	TotalTravel float64 `json:"total_travel"`
	MaxTravel   float64 `json:"max_travel"`
	MaxQueue    int     `json:"max_queue"`
	Replans     int     `json:"replans"`
	Rejections  int     `json:"rejections"`
}

// RecordCompletion publishes on <prefix>.<run>.task.
func (s *Sink) RecordCompletion(ev coremetrics.CompletionEvent) error {
	return s.publish(s.Subject(ev.RunID, "task"), completionMessage{
		TaskID:      ev.TaskID,
		Actor:       ev.Actor,
		Sector:      ev.Sector,
		X:           ev.X,
		Y:           ev.Y,
		Arrival:     ev.Arrival,
		Completion:  ev.Completion,
		Wait:        ev.Wait,
		ServiceTime: ev.ServiceTime,
	})
}

// RecordReplan publishes on <prefix>.<run>.replan when replans are enabled.
func (s *Sink) RecordReplan(ev coremetrics.ReplanEvent) error {
	if !s.cfg.Replans {
		return nil
	}
	return s.publish(s.Subject(ev.RunID, "replan"), replanMessage{
		Policy:     ev.Policy,
		SimTime:    ev.SimTime,
		Sector:     ev.Sector,
		Committed:  ev.Committed,
		Rejected:   ev.Rejected,
		Iterations: ev.Iterations,
		Cost:       ev.Cost,
		Stop:       ev.Stop,
		ElapsedMS:  float64(ev.Elapsed) / float64(time.Millisecond),
	})
}

// RecordRunSummary publishes on <prefix>.<run>.summary and flushes.
func (s *Sink) RecordRunSummary(sum coremetrics.RunSummary) error {
	if err := s.publish(s.Subject(sum.RunID, "summary"), summaryMessage(sum)); err != nil {
		return err
	}
	return s.nc.FlushTimeout(time.Duration(s.cfg.FlushTimeoutMS) * time.Millisecond)
}

// Failed counts messages that could not be published.
func (s *Sink) Failed() uint64 { return s.failed.Load() }

// Close drops the connection.
func (s *Sink) Close() { s.nc.Close() }
