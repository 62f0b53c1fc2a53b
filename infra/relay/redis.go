// Package relay forwards simulation events to Redis Pub/Sub so that viewers
// in other processes can follow a run.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kilianp07/dispatchsim/core/sim"
	"github.com/kilianp07/dispatchsim/infra/logger"
	"github.com/kilianp07/dispatchsim/internal/eventbus"
)

// Config enables the relay when URL is set, e.g. redis://localhost:6379/0.
type Config struct {
	URL    string `json:"url"`
	Prefix string `json:"prefix"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = "dispatchsim"
	}
}

// Validate checks the URL of an enabled relay.
func (c Config) Validate() error {
	if c.URL == "" {
		return nil
	}
	if _, err := redis.ParseURL(c.URL); err != nil {
		return errors.New("redis: invalid url: " + err.Error())
	}
	return nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// Relay publishes every bus event as JSON on the channel of its run.
type Relay struct {
	prefix string
	rdb    publisher
	log    logger.Logger
	failed atomic.Uint64
}

// New connects lazily to the server at cfg.URL.
func New(cfg Config) (*Relay, error) {
	cfg.SetDefaults()
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	return newRelay(cfg.Prefix, redis.NewClient(opt)), nil
}

func newRelay(prefix string, rdb publisher) *Relay {
	return &Relay{prefix: prefix, rdb: rdb, log: logger.New("redis-relay")}
}

// Channel is the Pub/Sub channel of one run.
func (r *Relay) Channel(runID string) string { return r.prefix + ":" + runID }

// Publish sends one event.
func (r *Relay) Publish(ctx context.Context, ev sim.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.Channel(ev.RunID), data).Err(); err != nil {
		r.failed.Add(1)
		return err
	}
	return nil
}

// Failed counts events that could not be published.
func (r *Relay) Failed() uint64 { return r.failed.Load() }

// Follow publishes bus events until ctx ends or the bus closes. The returned
// channel is closed when it stops.
func (r *Relay) Follow(ctx context.Context, bus *eventbus.Bus[sim.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := r.Publish(ctx, ev); err != nil {
					r.log.Warnf("publish %s: %v", ev.Kind, err)
				}
			}
		}
	}()
	return done
}

// Close releases the connection.
func (r *Relay) Close() error { return r.rdb.Close() }
