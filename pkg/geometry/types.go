// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Round returns the nearest integer point.
func (p Point2D) Round() PointInt {
	return PointInt{X: int(math.Floor(p.X + 0.5)), Y: int(math.Floor(p.Y + 0.5))}
}

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Image converts to an image.Point.
func (p PointInt) Image() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}

// Add returns the sum of two points.
func (p PointInt) Add(other PointInt) PointInt {
	return PointInt{X: p.X + other.X, Y: p.Y + other.Y}
}

// RectInt represents a rectangle with integer coordinates.
// The rectangle covers pixels [X, X+Width) x [Y, Y+Height).
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a rectangle from two corners (min inclusive, max exclusive).
func NewRectInt(x0, y0, x1, y1 int) RectInt {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// FromImageRect converts an image.Rectangle.
func FromImageRect(r image.Rectangle) RectInt {
	r = r.Canon()
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Image converts to an image.Rectangle.
func (r RectInt) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the rectangle covers no pixels.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the number of pixels covered.
func (r RectInt) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Contains returns true if the pixel (x, y) is inside the rectangle.
func (r RectInt) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Center returns the geometric center of the rectangle.
func (r RectInt) Center() Point2D {
	return Point2D{X: float64(r.X) + float64(r.Width)/2, Y: float64(r.Y) + float64(r.Height)/2}
}

// TopLeft returns the top-left corner.
func (r RectInt) TopLeft() PointInt {
	return PointInt{X: r.X, Y: r.Y}
}

// Translate returns the rectangle shifted by (dx, dy).
func (r RectInt) Translate(dx, dy int) RectInt {
	r.X += dx
	r.Y += dy
	return r
}

// Intersect returns the overlap of two rectangles.
func (r RectInt) Intersect(other RectInt) RectInt {
	return FromImageRect(r.Image().Intersect(other.Image()))
}
