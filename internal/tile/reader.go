// Package tile measures the colony inside one grid cell.
package tile

import (
	"math"

	"plate-scanner/internal/roi"
	"plate-scanner/internal/settings"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

// CircularityNotMeasured is reported for caller-defined colonies.
const CircularityNotMeasured = 1.0

// Tile is one grid cell. Gray (and Color, when present) hold exactly the
// pixels of ROI.Bounds and are borrowed for the duration of one Read.
type Tile struct {
	Row    int
	Column int
	ROI    roi.ROI
	Gray   gocv.Mat
	Color  gocv.Mat
}

// Origin returns the plate coordinates of the tile's top-left pixel.
func (t Tile) Origin() geometry.PointInt {
	return t.ROI.Bounds.TopLeft()
}

// Result is the measurement of one tile. An empty tile always has Size 0
// and no ColonyROI.
type Result struct {
	Row    int `json:"row"`
	Column int `json:"column"`

	Size        int     `json:"size"`
	Circularity float64 `json:"circularity"`
	Opacity     int     `json:"opacity"`
	Empty       bool    `json:"empty"`

	// Area and Perimeter of the selected particle; Size = Area + round(Perimeter).
	Area      int     `json:"area"`
	Perimeter float64 `json:"perimeter"`

	// WholeTileOpacity sums the reader's intensity over the whole tile.
	WholeTileOpacity int `json:"whole_tile_opacity"`

	ColonyROI *roi.ROI          `json:"colony_roi,omitempty"`
	Center    *geometry.Point2D `json:"center,omitempty"`
}

// Reader turns a tile into a Result. Implementations never fail: anything
// that cannot be measured comes back as an empty tile.
type Reader interface {
	Name() string
	Read(t Tile, s settings.Settings) Result
}

// measure runs the shared pipeline on a single-channel intensity image in
// which colonies are brighter than the background.
func measure(channel gocv.Mat, t Tile, s settings.Settings) Result {
	res := Result{Row: t.Row, Column: t.Column}
	if channel.Empty() {
		res.Empty = true
		return res
	}
	res.WholeTileOpacity = int(math.Round(sumPixels(channel, nil)))

	if s.UserDefinedROI {
		return measureOval(channel, t, res)
	}

	if empty, _ := IsEmpty(channel, s.VarianceThreshold); empty {
		res.Empty = true
		return res
	}

	mask := LocalMeanThreshold(channel, s.LocalThresholdRadius)
	defer mask.Close()
	Open(&mask)
	FillHoles(&mask)
	FillHoles(&mask)

	particles := FindParticles(mask, s.MinParticleSize)
	best, ok := Largest(particles)
	if !ok {
		res.Empty = true
		return res
	}

	origin := t.Origin()
	res.Area = best.Area
	res.Perimeter = best.Perimeter
	res.Size = best.Area + int(math.Round(best.Perimeter))
	res.Circularity = best.Circularity
	res.Opacity = int(math.Round(sumPixels(channel, best.contains)))

	colony := best.ROI().Translate(origin.X, origin.Y)
	center := best.Centroid.Add(origin.ToFloat())
	res.ColonyROI = &colony
	res.Center = &center
	return res
}

// measureOval handles caller-defined colonies: the oval is the colony.
func measureOval(channel gocv.Mat, t Tile, res Result) Result {
	oval := t.ROI
	if oval.Kind != roi.KindOval {
		oval = roi.Oval(t.ROI.Bounds)
	}
	origin := t.Origin()

	area := oval.Area()
	if area == 0 {
		res.Empty = true
		return res
	}

	inside := func(x, y int) bool {
		return oval.Contains(origin.X+x, origin.Y+y)
	}
	center := oval.Center()
	res.Size = area
	res.Area = area
	res.Circularity = CircularityNotMeasured
	res.Opacity = int(math.Round(sumPixels(channel, inside)))
	res.ColonyROI = &oval
	res.Center = &center
	return res
}

// sumPixels adds up single-channel pixel values, restricted to include when
// it is non-nil.
func sumPixels(m gocv.Mat, include func(x, y int) bool) float64 {
	var total float64
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			if include != nil && !include(x, y) {
				continue
			}
			total += pixel(m, y, x)
		}
	}
	return total
}

// pixel reads a single-channel value regardless of depth.
func pixel(m gocv.Mat, y, x int) float64 {
	switch m.Type() {
	case gocv.MatTypeCV16UC1:
		return float64(uint16(m.GetShortAt(y, x)))
	case gocv.MatTypeCV32FC1:
		return float64(m.GetFloatAt(y, x))
	case gocv.MatTypeCV64FC1:
		return m.GetDoubleAt(y, x)
	default:
		return float64(m.GetUCharAt(y, x))
	}
}
