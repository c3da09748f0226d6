package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Perimeters run through pixel centers, so a 10x10 block measures 4*9.
func TestFindParticlesSquarePerimeter(t *testing.T) {
	mask := flatTile(30, 30, 0)
	defer mask.Close()
	paintRect(mask, 10, 10, 10, 10, 255)

	particles := FindParticles(mask, 5)
	require.Len(t, particles, 1)
	p := particles[0]
	assert.Equal(t, 100, p.Area)
	assert.InDelta(t, 36, p.Perimeter, 1e-9)
	assert.InDelta(t, Circularity(100, 36), p.Circularity, 1e-9)
	assert.InDelta(t, 14.5, p.Centroid.X, 1e-9)
	assert.InDelta(t, 14.5, p.Centroid.Y, 1e-9)
}
