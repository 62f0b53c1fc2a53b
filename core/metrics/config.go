package metrics

import (
	"fmt"

	"github.com/kilianp07/dispatchsim/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr exposes /metrics when set, e.g. ":2112".
	PrometheusAddr string `json:"prometheus_addr"`
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return nil
}
