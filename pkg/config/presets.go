package config

import (
	"sort"

	"github.com/gwillem/rrteleop/pkg/kinematics"
)

// Preset is a named scripted command for the simulate command.
type Preset struct {
	Velocity kinematics.Vec3
	Duration float64 // seconds
	// InitialDeg overrides Arm.InitialDeg when set.
	InitialDeg []float64
}

// Presets are repeatable motions over the default unit arm.
var Presets = map[string]Preset{
	"sweep-right": {Velocity: kinematics.Vec3{X: 1}, Duration: 0.5},
	// drives the tip out past full extension
	"reach-limit": {Velocity: kinematics.Vec3{X: 1}, Duration: 1.0},
	"lift":        {Velocity: kinematics.Vec3{Y: 0.5}, Duration: 1.0},
	"diagonal":    {Velocity: kinematics.Vec3{X: -0.3, Y: -0.3}, Duration: 2.0},
	// starts straight, so the first commands are in the damped regime
	"from-singular": {Velocity: kinematics.Vec3{Y: 0.5}, Duration: 1.0, InitialDeg: []float64{0, 0}},
}

// GetPreset returns the named preset.
func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ListPresets returns the preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
