// Package settings holds the per-run configuration record shared by every
// stage of plate analysis.
package settings

import "runtime"

// Defaults used by Default().
const (
	DefaultVarianceThreshold    = 2e4
	DefaultLocalThresholdRadius = 20
	DefaultMinParticleSize      = 5
)

// Settings is passed by value into every stage; a stage that needs to change
// a field returns a modified copy.
type Settings struct {
	// Profile names the measurement profile this run was configured from.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`

	Rows    int `json:"rows" yaml:"rows" validate:"gt=0"`
	Columns int `json:"columns" yaml:"columns" validate:"gt=0"`

	// Spacing bounds in pixels. Written by grid.CalculateSpacing.
	MinSpacing int `json:"min_spacing" yaml:"min_spacing" validate:"gte=0"`
	MaxSpacing int `json:"max_spacing" yaml:"max_spacing" validate:"gte=0,gtefield=MinSpacing"`

	// UserDefinedROI treats every cell as a caller-placed oval colony.
	UserDefinedROI bool `json:"user_defined_roi" yaml:"user_defined_roi"`

	// VarianceThreshold is the emptiness cutoff on the variance of per-row sums.
	VarianceThreshold float64 `json:"variance_threshold" yaml:"variance_threshold" validate:"gte=0"`

	SaveDiagnosticOverlay bool `json:"save_diagnostic_overlay" yaml:"save_diagnostic_overlay"`

	LocalThresholdRadius int  `json:"local_threshold_radius" yaml:"local_threshold_radius" validate:"gte=1"`
	MinParticleSize      int  `json:"min_particle_size" yaml:"min_particle_size" validate:"gte=1"`
	DarkColonies         bool `json:"dark_colonies" yaml:"dark_colonies"`

	// Workers bounds the tile worker pool; 0 means one per CPU.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// Default returns settings for a 96-colony (8x12) plate.
func Default() Settings {
	return Settings{
		Rows:                 8,
		Columns:              12,
		VarianceThreshold:    DefaultVarianceThreshold,
		LocalThresholdRadius: DefaultLocalThresholdRadius,
		MinParticleSize:      DefaultMinParticleSize,
	}
}

// WithLayout returns a copy with the given grid layout.
func (s Settings) WithLayout(rows, columns int) Settings {
	s.Rows = rows
	s.Columns = columns
	return s
}

// WithSpacing returns a copy with explicit spacing bounds.
func (s Settings) WithSpacing(minSpacing, maxSpacing int) Settings {
	s.MinSpacing = minSpacing
	s.MaxSpacing = maxSpacing
	return s
}

// WithUserDefinedROI returns a copy with user-defined ROI mode set.
func (s Settings) WithUserDefinedROI(on bool) Settings {
	s.UserDefinedROI = on
	return s
}

// WithVarianceThreshold returns a copy with a custom emptiness cutoff.
func (s Settings) WithVarianceThreshold(v float64) Settings {
	s.VarianceThreshold = v
	return s
}

// WithOverlay returns a copy that requests the diagnostic overlay.
func (s Settings) WithOverlay(on bool) Settings {
	s.SaveDiagnosticOverlay = on
	return s
}

// WithDarkColonies returns a copy for plates where colonies are darker than agar.
func (s Settings) WithDarkColonies(on bool) Settings {
	s.DarkColonies = on
	return s
}

// WithWorkers returns a copy with the tile worker pool size.
func (s Settings) WithWorkers(n int) Settings {
	s.Workers = n
	return s
}

// EffectiveWorkers resolves Workers == 0 to the CPU count.
func (s Settings) EffectiveWorkers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

// Tiles returns the number of grid cells.
func (s Settings) Tiles() int {
	return s.Rows * s.Columns
}
