package immersion

// Color is an RGB triple with components in [0,1].
type Color struct {
	R float32 `json:"r" toml:"r"`
	G float32 `json:"g" toml:"g"`
	B float32 `json:"b" toml:"b"`
}

// Environment describes sky, fog and ground while a waypoint is current.
type Environment struct {
	Name       string  `json:"name,omitempty" toml:"name"`
	SkyColor   Color   `json:"sky_color" toml:"sky_color"`
	FogDensity float32 `json:"fog_density" toml:"fog_density"`
	FogColor   Color   `json:"fog_color" toml:"fog_color"`
	Ground     string  `json:"ground,omitempty" toml:"ground"`
}

// DefaultEnvironment is used when neither the waypoint nor the immersion
// names one.
var DefaultEnvironment = Environment{
	Name:       "default",
	SkyColor:   Color{R: 0.941, G: 0.772, B: 0.239},
	FogDensity: 0.05,
	FogColor:   Color{R: 1, G: 1, B: 1},
}

// EnvironmentFor returns the environment to apply while w is current.
func (im *Immersion) EnvironmentFor(w *Waypoint) Environment {
	if w != nil && w.Environment != "" {
		if env, ok := im.Environments[w.Environment]; ok {
			return env
		}
	}
	return im.DefaultEnvironment
}
