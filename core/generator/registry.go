package generator

func init() {
	Registry.MustRegister("uniform", func(conf map[string]any) (Generator, error) {
		c, err := decode[UniformConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewUniform(*c), nil
	})
	Registry.MustRegister("all", func(conf map[string]any) (Generator, error) {
		c, err := decode[UniformConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewAll(*c), nil
	})
	Registry.MustRegister("bimodal", func(conf map[string]any) (Generator, error) {
		c, err := decode[BimodalConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewBimodal(*c)
	})
	Registry.MustRegister("pathological", func(conf map[string]any) (Generator, error) {
		c, err := decode[PathologicalConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewPathological(*c)
	})
	Registry.MustRegister("pingpong", func(conf map[string]any) (Generator, error) {
		c, err := decode[PingPongConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewPingPong(*c)
	})
	Registry.MustRegister("bad_business", func(conf map[string]any) (Generator, error) {
		c, err := decode[BadBusinessConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewBadBusiness(*c)
	})
	Registry.MustRegister("fixed", func(conf map[string]any) (Generator, error) {
		c, err := decode[FixedConfig](conf)
		if err != nil {
			return nil, err
		}
		return NewFixed(*c)
	})
}
