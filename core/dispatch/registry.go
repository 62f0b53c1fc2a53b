package dispatch

import (
	"github.com/kilianp07/dispatchsim/core/factory"
)

// Registry holds every named policy.
var Registry = factory.NewRegistry[Policy]("policy")

// presets are the local search variants and their default settings. Any
// field can be overridden from the module conf.
var presets = map[string]LNSConfig{
	"tsp":        {Cost: "distance", Trigger: "idle_pending"},
	"batch_wait": {Cost: "wait", Trigger: "idle_pending"},
	"quad_wait":  {Cost: "wait_power", Exponent: 2, Trigger: "arrival"},
	"weighted":   {Cost: "weighted", WAvg: 0.8, WMax: 0.2, Trigger: "arrival"},
	"hybrid":     {Cost: "wait_power", Exponent: 2, Trigger: "arrival_or_idle_pending"},
	"trp":        {Cost: "wait", Trigger: "skip_busy"},
}

func init() {
	for name, base := range presets {
		Registry.MustRegister(name, lnsFactory(name, base))
	}
	Registry.MustRegister("random", func(conf map[string]any) (Policy, error) {
		var c RandomConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRandom(c)
	})
	Registry.MustRegister("exact", func(conf map[string]any) (Policy, error) {
		var c ExactConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewExact(c, nil)
	})
}

func lnsFactory(name string, base LNSConfig) factory.Factory[Policy] {
	return func(conf map[string]any) (Policy, error) {
		c := base
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewLNS(name, c)
	}
}
