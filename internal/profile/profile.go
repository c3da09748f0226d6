// Package profile registers the measurement profiles a plate can be run with.
package profile

import (
	"fmt"
	"sort"

	"plate-scanner/internal/settings"
	"plate-scanner/internal/tile"
)

// ReaderKind selects the tile reader for a profile.
type ReaderKind string

const (
	ReaderOpacity    ReaderKind = "opacity"
	ReaderDarkColony ReaderKind = "dark-colony"
)

// Profile is a named plate layout plus the reader that measures it.
type Profile struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Rows           int        `json:"rows"`
	Columns        int        `json:"columns"`
	Reader         ReaderKind `json:"reader"`
	UserDefinedROI bool       `json:"user_defined_roi,omitempty"`
}

// Validate checks the profile is usable.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Rows <= 0 || p.Columns <= 0 {
		return fmt.Errorf("profile %s: layout must be positive, got %dx%d", p.Name, p.Rows, p.Columns)
	}
	if _, err := NewReader(p.Reader); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return nil
}

// Apply returns s configured for this profile.
func (p Profile) Apply(s settings.Settings) settings.Settings {
	s = s.WithLayout(p.Rows, p.Columns).
		WithDarkColonies(p.Reader == ReaderDarkColony).
		WithUserDefinedROI(p.UserDefinedROI)
	s.Profile = p.Name
	return s
}

// NewReader returns the tile reader for kind.
func NewReader(kind ReaderKind) (tile.Reader, error) {
	switch kind {
	case ReaderOpacity:
		return tile.OpacityReader{}, nil
	case ReaderDarkColony:
		return tile.DarkColonyReader{}, nil
	default:
		return nil, fmt.Errorf("unknown reader %q", kind)
	}
}

// Registry of known profiles
var registry = make(map[string]Profile)

// Register adds a profile to the registry, replacing any with the same name.
func Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	registry[p.Name] = p
	return nil
}

// Get returns a profile by name.
func Get(name string) (Profile, bool) {
	p, ok := registry[name]
	return p, ok
}

// List returns all registered profile names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Built-in layouts.
func builtins() []Profile {
	return []Profile{
		{Name: "opacity96", Description: "Colony size and opacity, 96-colony plate", Rows: 8, Columns: 12, Reader: ReaderOpacity},
		{Name: "opacity384", Description: "Colony size and opacity, 384-colony plate", Rows: 16, Columns: 24, Reader: ReaderOpacity},
		{Name: "opacity1536", Description: "Colony size and opacity, 1536-colony plate", Rows: 32, Columns: 48, Reader: ReaderOpacity},
		{Name: "dark96", Description: "Colony opacity inverted (dark colonies on light agar), 96-colony plate", Rows: 8, Columns: 12, Reader: ReaderDarkColony},
		{Name: "dark384", Description: "Colony opacity inverted (dark colonies on light agar), 384-colony plate", Rows: 16, Columns: 24, Reader: ReaderDarkColony},
		{Name: "dark1536", Description: "Colony opacity inverted (dark colonies on light agar), 1536-colony plate", Rows: 32, Columns: 48, Reader: ReaderDarkColony},
		{Name: "single", Description: "One colony filling the whole image", Rows: 1, Columns: 1, Reader: ReaderOpacity, UserDefinedROI: true},
	}
}

func init() {
	for _, p := range builtins() {
		if err := Register(p); err != nil {
			panic(err)
		}
	}
}
