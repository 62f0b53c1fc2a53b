// Package webhook posts run summaries to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/dispatchsim/auth"
	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
	"github.com/kilianp07/dispatchsim/infra/logger"
)

// Config describes the endpoint.
type Config struct {
	URL       string            `json:"url"`
	TimeoutMS int               `json:"timeout_ms"`
	Headers   map[string]string `json:"headers"`
	Auth      auth.Conf         `json:"auth"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("webhook: url is required")
	}
	return c.Auth.Validate()
}

// Sink sends one POST per finished run. Completions are ignored.
type Sink struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// NewSink returns a sink for cfg.
func NewSink(cfg Config) (*Sink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	return &Sink{
		cfg:    cfg,
		client: auth.NewClient(context.Background(), cfg.Auth, base),
		log:    logger.New("webhook"),
	}, nil
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

func (s *Sink) RecordCompletion(coremetrics.CompletionEvent) error { return nil }

// RecordRunSummary posts the summary as JSON. Any non 2xx answer is an error.
func (s *Sink) RecordRunSummary(sum coremetrics.RunSummary) error {
	body, err := json.Marshal(summaryMessage(sum))
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Errorf("post summary of run %s: %v", sum.RunID, err)
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		s.log.Warnf("post summary of run %s: status %d", sum.RunID, resp.StatusCode)
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	s.log.Debugf("posted summary of run %s", sum.RunID)
	return nil
}
