package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dispatchsim/api"
	"github.com/kilianp07/dispatchsim/core/factory"
	"github.com/kilianp07/dispatchsim/core/metrics"
	"github.com/kilianp07/dispatchsim/core/monitoring"
	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/core/sim"
	"github.com/kilianp07/dispatchsim/infra/relay"
)

// EnvPrefix marks environment overrides, e.g. DSIM_SIMULATION__SEED=7.
const EnvPrefix = "DSIM_"

type Config struct {
	Simulation sim.Config           `json:"simulation"`
	Field      FieldConfig          `json:"field"`
	Policy     factory.ModuleConfig `json:"policy"`
	Generator  factory.ModuleConfig `json:"generator"`
	Records    records.Config       `json:"records"`
	Metrics    metrics.Config       `json:"metrics"`
	Sentry     monitoring.Config    `json:"sentry"`
	WebSocket  WebSocketConfig      `json:"websocket"`
	API        api.Config           `json:"api"`
	Redis      relay.Config         `json:"redis"`
}

// WebSocketConfig exposes live events to viewers when Addr is set.
type WebSocketConfig struct {
	Addr string `json:"addr"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section. Generator limits not given explicitly
// follow the simulation limits.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Field.SetDefaults(c.Simulation.Actors)
	c.Records.SetDefaults()
	c.Redis.SetDefaults()
	if c.Policy.Type == "" {
		c.Policy.Type = "tsp"
	}
	if c.Generator.Type == "" {
		c.Generator.Type = "uniform"
	}
	if c.Generator.Conf == nil {
		c.Generator.Conf = map[string]any{}
	}
	if _, ok := c.Generator.Conf["max_time"]; !ok && c.Simulation.MaxTime > 0 {
		c.Generator.Conf["max_time"] = c.Simulation.MaxTime
	}
	if _, ok := c.Generator.Conf["total_tasks"]; !ok && c.Simulation.MaxTasks > 0 {
		c.Generator.Conf["total_tasks"] = c.Simulation.MaxTasks
	}
	if _, ok := c.Generator.Conf["service_time"]; !ok && c.Simulation.ServiceTime > 0 {
		c.Generator.Conf["service_time"] = c.Simulation.ServiceTime
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if err := c.Field.Validate(); err != nil {
		return fmt.Errorf("field: %w", err)
	}
	if err := c.Records.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Redis.Validate()
}
