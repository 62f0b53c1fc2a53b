// Package records persists the per-task completion records of a run.
package records

import (
	"context"
	"fmt"
)

// Record is written once per serviced task.
type Record struct {
	RunID       string  `json:"run_id"`
	ID          int     `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Arrival     float64 `json:"arrival"`
	Completion  float64 `json:"completion"`
	InitialWait float64 `json:"initial_wait"`
	Wait        float64 `json:"wait"`
	Actor       int     `json:"actor"`
	Sector      int     `json:"sector"`
	ServiceTime float64 `json:"service_time"`
}

// Query filters records. Zero values match everything.
type Query struct {
	RunID   string
	SinceID int  // keep records with ID >= SinceID
	Actor   *int // keep records serviced by this actor
	Limit   int
}

// Match reports whether r passes the filter, ignoring Limit.
func (q Query) Match(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if r.ID < q.SinceID {
		return false
	}
	if q.Actor != nil && r.Actor != *q.Actor {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Nop drops every record.
type Nop struct{}

func (Nop) Append(context.Context, Record) error           { return nil }
func (Nop) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                   { return nil }

// Config selects and configures a record store.
type Config struct {
	// Backend is one of "none", "jsonl", "jsonl_rotating", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// Path is the file location for the file based backends.
	Path string `json:"path"`
	// DSN is the connection string of the postgres backend.
	DSN        string `json:"dsn"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl", "jsonl_rotating":
			c.Path = "records.jsonl"
		case "sqlite":
			c.Path = "records.db"
		}
	}
	if c.Backend == "jsonl_rotating" && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "jsonl", "jsonl_rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("records: path is required for %s", c.Backend)
		}
		return nil
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("records: dsn is required for postgres")
		}
		return nil
	default:
		return fmt.Errorf("records: unknown backend %s", c.Backend)
	}
}

// Open builds the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return Nop{}, nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "jsonl_rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("records: unknown backend %s", cfg.Backend)
	}
}

func limit(res []Record, n int) []Record {
	if n > 0 && len(res) > n {
		return res[:n]
	}
	return res
}
