package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dispatchsim/config"
)

// Expected lists the checks applied to a finished run. Unset fields are
// not checked.
type Expected struct {
	Serviced      *int     `yaml:"serviced,omitempty"`
	Reason        string   `yaml:"reason,omitempty"`
	AvgWait       *float64 `yaml:"avg_wait,omitempty"`
	Tolerance     float64  `yaml:"tolerance,omitempty"`
	MaxAvgWait    float64  `yaml:"max_avg_wait,omitempty"`
	MaxRejections *int     `yaml:"max_rejections,omitempty"`
}

// Scenario is a regular configuration file with a name and expectations
// on top.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Expected    Expected       `yaml:"expected"`
	Config      *config.Config `yaml:"-"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	if sc.Config, err = config.Load(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}
