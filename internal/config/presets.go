package config

import (
	"fmt"
	"sort"
)

// Presets are plant setups for simulate and emulate.
var Presets = map[string]PlantConfig{
	"light": {
		Integrator: "rk4", Dt: 0.05, Gain: 45, Damping: 0.05, InitRate: 40,
	},
	"heavy": {
		Integrator: "rk4", Dt: 0.05, Gain: 12, Damping: 0.02, InitRate: 40,
	},
	"spinning": {
		Integrator: "rk4", Dt: 0.05, Gain: 30, Damping: 0.05, InitAngle: 90, InitRate: 120,
	},
	"drifting": {
		Integrator: "rk4", Dt: 0.05, Gain: 30, Damping: 0.05, Disturbance: 2, InitRate: 0, RateNoise: 0.2, Seed: 7,
	},
}

func GetPreset(name string) (PlantConfig, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ApplyPreset replaces the plant section with the named preset.
func (c *Config) ApplyPreset(name string) error {
	p, ok := GetPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset: %s", name)
	}
	c.Plant = p
	return nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
