package metrics

import "github.com/kilianp07/dispatchsim/core/factory"

// Registry holds every named sink. Built-in sinks register themselves from
// their infra packages.
var Registry = factory.NewRegistry[Sink]("metrics sink")

func init() {
	Registry.MustRegister("nop", func(map[string]any) (Sink, error) { return NopSink{}, nil })
}

// NewSink creates a Sink from the provided configuration.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return Registry.Create(cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := Registry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
