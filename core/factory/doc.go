// Package factory provides the generic registry used to build policies,
// generators and sinks from configuration. A module is described by a type
// string and a map of raw settings; each factory decodes the settings into
// its own typed struct.
//
//	reg := factory.NewRegistry[generator.Generator]("generator")
//	reg.MustRegister("uniform", func(conf map[string]any) (generator.Generator, error) {
//	    var c generator.UniformConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return generator.NewUniform(c), nil
//	})
//	g, err := reg.Create(factory.ModuleConfig{Type: "uniform", Conf: map[string]any{"min": -1}})
package factory
