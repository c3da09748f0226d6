// Package roi describes regions of interest on a plate image.
package roi

import (
	"fmt"

	"plate-scanner/pkg/geometry"
)

// Kind identifies the geometry an ROI carries.
type Kind int

const (
	KindRectangle Kind = iota
	KindOval
	KindMask
)

func (k Kind) String() string {
	switch k {
	case KindRectangle:
		return "rectangle"
	case KindOval:
		return "oval"
	case KindMask:
		return "mask"
	default:
		return "unknown"
	}
}

// ROI is a region on the plate in plate pixel coordinates. Rectangles and
// ovals are fully described by Bounds; masks also carry a per-pixel bitmap
// over Bounds and the traced outline used for drawing.
type ROI struct {
	Kind    Kind                `json:"kind"`
	Bounds  geometry.RectInt    `json:"bounds"`
	Outline []geometry.PointInt `json:"outline,omitempty"`

	mask []bool
}

// Rect returns a rectangular ROI.
func Rect(bounds geometry.RectInt) ROI {
	return ROI{Kind: KindRectangle, Bounds: bounds}
}

// Oval returns the oval inscribed in bounds.
func Oval(bounds geometry.RectInt) ROI {
	return ROI{Kind: KindOval, Bounds: bounds}
}

// Mask returns a free-form ROI. pixels is row-major over bounds and must have
// bounds.Area() entries.
func Mask(bounds geometry.RectInt, pixels []bool, outline []geometry.PointInt) (ROI, error) {
	if len(pixels) != bounds.Area() {
		return ROI{}, fmt.Errorf("mask has %d pixels, bounds need %d", len(pixels), bounds.Area())
	}
	return ROI{Kind: KindMask, Bounds: bounds, Outline: outline, mask: pixels}, nil
}

// Contains reports whether pixel (x, y) belongs to the region.
func (r ROI) Contains(x, y int) bool {
	if !r.Bounds.Contains(x, y) {
		return false
	}
	switch r.Kind {
	case KindOval:
		return insideOval(r.Bounds, x, y)
	case KindMask:
		return r.mask[(y-r.Bounds.Y)*r.Bounds.Width+(x-r.Bounds.X)]
	default:
		return true
	}
}

// Area returns the number of pixels in the region.
func (r ROI) Area() int {
	switch r.Kind {
	case KindRectangle:
		return r.Bounds.Area()
	case KindMask:
		n := 0
		for _, on := range r.mask {
			if on {
				n++
			}
		}
		return n
	default:
		n := 0
		for y := r.Bounds.Y; y < r.Bounds.Y+r.Bounds.Height; y++ {
			for x := r.Bounds.X; x < r.Bounds.X+r.Bounds.Width; x++ {
				if insideOval(r.Bounds, x, y) {
					n++
				}
			}
		}
		return n
	}
}

// Center returns the geometric center of the bounds.
func (r ROI) Center() geometry.Point2D {
	return r.Bounds.Center()
}

// Translate returns the region shifted by (dx, dy).
func (r ROI) Translate(dx, dy int) ROI {
	out := r
	out.Bounds = r.Bounds.Translate(dx, dy)
	if len(r.Outline) > 0 {
		out.Outline = make([]geometry.PointInt, len(r.Outline))
		d := geometry.PointInt{X: dx, Y: dy}
		for i, p := range r.Outline {
			out.Outline[i] = p.Add(d)
		}
	}
	return out
}

// insideOval tests the pixel center against the ellipse inscribed in b.
func insideOval(b geometry.RectInt, x, y int) bool {
	if b.Empty() {
		return false
	}
	a := float64(b.Width) / 2
	c := float64(b.Height) / 2
	dx := (float64(x) + 0.5 - (float64(b.X) + a)) / a
	dy := (float64(y) + 0.5 - (float64(b.Y) + c)) / c
	return dx*dx+dy*dy <= 1
}
