// Package grid partitions a cropped plate image into a matrix of colony
// tiles and sanity-checks the result.
package grid

import (
	"math"

	"plate-scanner/internal/settings"
)

// CalculateSpacing derives the spacing window from the plate width. The
// nominal spacing is width / columns (integer division); the accepted window
// is 2/3 to 4/3 of it. Rows use the same window.
func CalculateSpacing(width int, s settings.Settings) settings.Settings {
	if s.Columns <= 0 || width <= 0 {
		return s
	}
	nominal := float64(width / s.Columns)
	s.MinSpacing = roundHalfUp(nominal * 2 / 3)
	s.MaxSpacing = roundHalfUp(nominal * 4 / 3)
	return s
}

// NominalSpacing returns width / columns as used by CalculateSpacing.
func NominalSpacing(width int, s settings.Settings) int {
	if s.Columns <= 0 {
		return 0
	}
	return width / s.Columns
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
