package control

import (
	"fmt"
	"sort"

	"github.com/san-kum/remotelab/internal/fuzzy"
	"github.com/san-kum/remotelab/internal/rig"
)

// Registry maps controller names to factories. Factories read their
// parameters from a flat map, missing keys fall back to defaults.
type Registry struct {
	controllers map[string]factory
	tuning      fuzzy.Tuning
}

type factory func(params map[string]float64) (rig.Controller, error)

func NewRegistry() *Registry {
	return NewRegistryWithTuning(fuzzy.DefaultTuning())
}

// NewRegistryWithTuning uses tuning for the "fuzzy" controller.
func NewRegistryWithTuning(tuning fuzzy.Tuning) *Registry {
	r := &Registry{
		controllers: make(map[string]factory),
		tuning:      tuning,
	}

	r.controllers["fuzzy"] = func(params map[string]float64) (rig.Controller, error) {
		tn, err := applyTuning(r.tuning, params)
		if err != nil {
			return nil, err
		}
		return NewFuzzy(tn), nil
	}
	r.controllers["pid"] = func(params map[string]float64) (rig.Controller, error) {
		return NewPID(param(params, "kp", 0.05), param(params, "ki", 0), param(params, "kd", 0), param(params, "target", 0)), nil
	}
	r.controllers["manual"] = func(params map[string]float64) (rig.Controller, error) {
		u := param(params, "u", 0)
		if u < -1 || u > 1 {
			return nil, fmt.Errorf("%w: u=%g", rig.ErrParameterBounds, u)
		}
		return NewManual(u), nil
	}
	r.controllers["none"] = func(params map[string]float64) (rig.Controller, error) {
		return NewNone(), nil
	}

	return r
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

func (r *Registry) Get(name string, params map[string]float64) (rig.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	ctrl, err := fn(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ctrl, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
