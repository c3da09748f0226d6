package tile

import (
	"math"

	"plate-scanner/internal/roi"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

// Particle is one connected foreground component of a tile mask, in tile
// coordinates.
type Particle struct {
	Area        int
	Perimeter   float64
	Circularity float64
	Centroid    geometry.Point2D
	Bounds      geometry.RectInt
	Outline     []geometry.PointInt

	pixels []bool // row-major over Bounds
}

// ROI returns the particle as a mask region.
func (p Particle) ROI() roi.ROI {
	r, err := roi.Mask(p.Bounds, p.pixels, p.Outline)
	if err != nil {
		return roi.Rect(p.Bounds)
	}
	return r
}

// contains reports membership in tile coordinates.
func (p Particle) contains(x, y int) bool {
	if !p.Bounds.Contains(x, y) {
		return false
	}
	return p.pixels[(y-p.Bounds.Y)*p.Bounds.Width+(x-p.Bounds.X)]
}

// FindParticles labels outer contours of mask and keeps those whose filled
// pixel count is at least minArea.
func FindParticles(mask gocv.Mat, minArea int) []Particle {
	if mask.Empty() {
		return nil
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	var particles []Particle
	for i := 0; i < contours.Size(); i++ {
		p, ok := measureContour(mask.Rows(), mask.Cols(), contours, i)
		if !ok || p.Area < minArea {
			continue
		}
		particles = append(particles, p)
	}
	return particles
}

func measureContour(rows, cols int, contours gocv.PointsVector, idx int) (Particle, bool) {
	contour := contours.At(idx)
	bounds := geometry.FromImageRect(gocv.BoundingRect(contour))
	if bounds.Empty() {
		return Particle{}, false
	}

	filled := zeros(rows, cols)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, idx, white, -1)

	region := filled.Region(bounds.Image())
	defer region.Close()

	p := Particle{
		Area:      gocv.CountNonZero(region),
		Perimeter: gocv.ArcLength(contour, true),
		Bounds:    bounds,
		pixels:    make([]bool, bounds.Area()),
	}
	if p.Area == 0 {
		return Particle{}, false
	}

	for y := 0; y < bounds.Height; y++ {
		for x := 0; x < bounds.Width; x++ {
			p.pixels[y*bounds.Width+x] = region.GetUCharAt(y, x) != 0
		}
	}

	moments := gocv.Moments(region, true)
	if m00 := moments["m00"]; m00 > 0 {
		p.Centroid = geometry.Point2D{
			X: float64(bounds.X) + moments["m10"]/m00,
			Y: float64(bounds.Y) + moments["m01"]/m00,
		}
	} else {
		p.Centroid = bounds.Center()
	}

	p.Circularity = Circularity(float64(p.Area), p.Perimeter)

	pts := contour.ToPoints()
	p.Outline = make([]geometry.PointInt, len(pts))
	for i, pt := range pts {
		p.Outline[i] = geometry.PointInt{X: pt.X, Y: pt.Y}
	}
	return p, true
}

// Circularity is 4*pi*area/perimeter^2 clipped to [0, 1]; 0 when the
// perimeter is degenerate.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	c := 4 * math.Pi * area / (perimeter * perimeter)
	return math.Max(0, math.Min(1, c))
}

// Largest returns the particle with the greatest area. Ties keep the first.
func Largest(particles []Particle) (Particle, bool) {
	if len(particles) == 0 {
		return Particle{}, false
	}
	best := particles[0]
	for _, p := range particles[1:] {
		if p.Area > best.Area {
			best = p
		}
	}
	return best, true
}
