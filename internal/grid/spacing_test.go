package grid

import (
	"testing"

	"plate-scanner/internal/settings"

	"github.com/stretchr/testify/assert"
)

func TestCalculateSpacing(t *testing.T) {
	tests := []struct {
		width, columns int
		min, max       int
	}{
		{1200, 12, 67, 133},
		{200, 2, 67, 133},
		{10, 3, 2, 4},
		{2400, 24, 67, 133},
		{1000, 48, 13, 27},
	}

	for _, tt := range tests {
		s := CalculateSpacing(tt.width, settings.Default().WithLayout(1, tt.columns))
		assert.Equal(t, tt.min, s.MinSpacing, "width=%d columns=%d", tt.width, tt.columns)
		assert.Equal(t, tt.max, s.MaxSpacing, "width=%d columns=%d", tt.width, tt.columns)
	}
}

func TestCalculateSpacingReturnsCopy(t *testing.T) {
	base := settings.Default()
	derived := CalculateSpacing(1200, base)
	assert.Zero(t, base.MinSpacing)
	assert.NotZero(t, derived.MinSpacing)
}

func TestCalculateSpacingWindowProperties(t *testing.T) {
	for columns := 1; columns <= 50; columns++ {
		for width := 1; width <= 2000; width += 7 {
			s := CalculateSpacing(width, settings.Default().WithLayout(1, columns))
			nominal := NominalSpacing(width, s)

			assert.LessOrEqual(t, s.MinSpacing, nominal)
			assert.GreaterOrEqual(t, s.MaxSpacing, nominal)

			// The window ratio is exactly 2 before rounding.
			diff := s.MaxSpacing - 2*s.MinSpacing
			assert.True(t, diff >= -1 && diff <= 1, "width=%d columns=%d min=%d max=%d", width, columns, s.MinSpacing, s.MaxSpacing)
		}
	}
}
