package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectIntContainsIsHalfOpen(t *testing.T) {
	r := NewRectInt(10, 20, 30, 40)

	assert.True(t, r.Contains(10, 20))
	assert.True(t, r.Contains(29, 39))
	assert.False(t, r.Contains(30, 39))
	assert.False(t, r.Contains(29, 40))
	assert.Equal(t, 400, r.Area())
}

func TestNewRectIntNormalizesCorners(t *testing.T) {
	assert.Equal(t, RectInt{X: 1, Y: 2, Width: 4, Height: 6}, NewRectInt(5, 8, 1, 2))
}

func TestRectIntImageRoundTrip(t *testing.T) {
	r := RectInt{X: 3, Y: 4, Width: 5, Height: 6}
	assert.Equal(t, image.Rect(3, 4, 8, 10), r.Image())
	assert.Equal(t, r, FromImageRect(r.Image()))
}

func TestRectIntIntersect(t *testing.T) {
	a := NewRectInt(0, 0, 10, 10)
	b := NewRectInt(5, 5, 20, 20)
	assert.Equal(t, NewRectInt(5, 5, 10, 10), a.Intersect(b))
	assert.True(t, a.Intersect(NewRectInt(50, 50, 60, 60)).Empty())
}

func TestPointRound(t *testing.T) {
	assert.Equal(t, PointInt{X: 3, Y: -2}, Point2D{X: 2.5, Y: -2.5}.Round())
}
