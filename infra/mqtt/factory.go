package mqtt

import (
	"github.com/kilianp07/dispatchsim/core/factory"
	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
)

func init() {
	coremetrics.Registry.MustRegister("mqtt", func(conf map[string]any) (coremetrics.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}
