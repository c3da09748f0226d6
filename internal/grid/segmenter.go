package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"plate-scanner/internal/roi"
	"plate-scanner/internal/settings"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

// Segmentation is the row-by-column partition of a plate. Grid is indexed
// [row][column] with row 0 at the top and is nil when Flags reports an error.
type Segmentation struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	Grid [][]roi.ROI `json:"-"`

	// Boundaries are pixel positions; cell k spans [b[k], b[k+1]).
	ColumnBoundaries []int `json:"column_boundaries"`
	RowBoundaries    []int `json:"row_boundaries"`

	// TopLeft is the origin of cell (0,0); BottomRight is the origin of the
	// bottom-right cell, matching the anchors printed in report headers.
	TopLeft     geometry.PointInt `json:"top_left"`
	BottomRight geometry.PointInt `json:"bottom_right"`

	MinSpacing int   `json:"min_spacing"`
	MaxSpacing int   `json:"max_spacing"`
	Flags      Flags `json:"flags"`
}

// ErrorOccurred reports whether any failure flag is set.
func (s *Segmentation) ErrorOccurred() bool {
	return s.Flags.ErrorOccurred()
}

// Cell returns the ROI at (row, column).
func (s *Segmentation) Cell(row, column int) roi.ROI {
	return s.Grid[row][column]
}

// ErrSpacingNotSet is returned when Segment is called before CalculateSpacing.
var ErrSpacingNotSet = errors.New("spacing bounds not set")

// Segment finds Rows+1 horizontal and Columns+1 vertical boundaries on a
// grayscale plate. Boundaries are picked rising-tide style from the darkest
// positions of the column/row brightness profiles (brightest when colonies
// are dark), keeping each at least MinSpacing from those already taken.
//
// On geometric failure it returns the partial segmentation and a
// *GeometryError.
func Segment(gray gocv.Mat, s settings.Settings) (*Segmentation, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	// A plate with fewer pixels than cells along an axis cannot hold the
	// grid, and its spacing window collapses to zero.
	if gray.Cols() < s.Columns || gray.Rows() < s.Rows {
		seg := &Segmentation{
			Rows:       s.Rows,
			Columns:    s.Columns,
			MinSpacing: s.MinSpacing,
			MaxSpacing: s.MaxSpacing,
		}
		seg.Flags.NotEnoughColumnsFound = gray.Cols() < s.Columns
		seg.Flags.NotEnoughRowsFound = gray.Rows() < s.Rows
		return seg, &GeometryError{Flags: seg.Flags}
	}

	if s.MinSpacing <= 0 || s.MaxSpacing <= 0 {
		return nil, fmt.Errorf("%w: min=%d, max=%d", ErrSpacingNotSet, s.MinSpacing, s.MaxSpacing)
	}

	colProfile, err := brightnessProfile(gray, 0)
	if err != nil {
		return nil, err
	}
	rowProfile, err := brightnessProfile(gray, 1)
	if err != nil {
		return nil, err
	}
	if s.DarkColonies {
		negate(colProfile)
		negate(rowProfile)
	}

	seg := &Segmentation{
		Rows:       s.Rows,
		Columns:    s.Columns,
		MinSpacing: s.MinSpacing,
		MaxSpacing: s.MaxSpacing,
	}

	seg.ColumnBoundaries = risingTide(colProfile, s.Columns, s.MinSpacing)
	if len(seg.ColumnBoundaries) < s.Columns+1 {
		seg.Flags.NotEnoughColumnsFound = true
	} else if !spacingWithin(seg.ColumnBoundaries, s.MinSpacing, s.MaxSpacing) {
		seg.Flags.IncorrectColumnSpacing = true
	}

	seg.RowBoundaries = risingTide(rowProfile, s.Rows, s.MinSpacing)
	if len(seg.RowBoundaries) < s.Rows+1 {
		seg.Flags.NotEnoughRowsFound = true
	} else if !spacingWithin(seg.RowBoundaries, s.MinSpacing, s.MaxSpacing) {
		seg.Flags.IncorrectRowSpacing = true
	}

	if seg.Flags.ErrorOccurred() {
		return seg, &GeometryError{Flags: seg.Flags}
	}

	seg.Grid = cellsFromBoundaries(seg.RowBoundaries, seg.ColumnBoundaries, roi.Rect)
	seg.TopLeft = seg.Grid[0][0].Bounds.TopLeft()
	seg.BottomRight = seg.Grid[s.Rows-1][s.Columns-1].Bounds.TopLeft()
	return seg, nil
}

// EvenGrid divides the plate into equal cells, each holding the oval
// inscribed in it. Used when colony positions are defined by the caller.
func EvenGrid(width, height int, s settings.Settings) *Segmentation {
	cols := evenBoundaries(width, s.Columns)
	rows := evenBoundaries(height, s.Rows)

	seg := &Segmentation{
		Rows:             s.Rows,
		Columns:          s.Columns,
		ColumnBoundaries: cols,
		RowBoundaries:    rows,
		MinSpacing:       s.MinSpacing,
		MaxSpacing:       s.MaxSpacing,
	}
	seg.Grid = cellsFromBoundaries(rows, cols, roi.Oval)
	seg.TopLeft = seg.Grid[0][0].Bounds.TopLeft()
	seg.BottomRight = seg.Grid[s.Rows-1][s.Columns-1].Bounds.TopLeft()
	return seg
}

func evenBoundaries(length, cells int) []int {
	b := make([]int, cells+1)
	for k := range b {
		b[k] = k * length / cells
	}
	return b
}

func cellsFromBoundaries(rows, cols []int, shape func(geometry.RectInt) roi.ROI) [][]roi.ROI {
	grid := make([][]roi.ROI, len(rows)-1)
	for r := range grid {
		grid[r] = make([]roi.ROI, len(cols)-1)
		for c := range grid[r] {
			grid[r][c] = shape(geometry.NewRectInt(cols[c], rows[r], cols[c+1], rows[r+1]))
		}
	}
	return grid
}

// brightnessProfile sums pixels down each column (dim 0) or across each
// row (dim 1).
func brightnessProfile(gray gocv.Mat, dim int) ([]float64, error) {
	sums := gocv.NewMat()
	defer sums.Close()
	gocv.Reduce(gray, &sums, dim, gocv.ReduceSum, gocv.MatTypeCV64F)
	if sums.Empty() {
		return nil, fmt.Errorf("failed to reduce image along dimension %d", dim)
	}

	n := sums.Total()
	profile := make([]float64, n)
	for i := 0; i < n; i++ {
		if dim == 0 {
			profile[i] = sums.GetDoubleAt(0, i)
		} else {
			profile[i] = sums.GetDoubleAt(i, 0)
		}
	}
	return profile, nil
}

func negate(v []float64) {
	for i := range v {
		v[i] = -v[i]
	}
}

// risingTide returns up to cells+1 sorted boundary positions. Positions are
// visited from the lowest profile value up; ties go to the position closest
// to an evenly spaced boundary, then to the lower index.
func risingTide(profile []float64, cells, minSpacing int) []int {
	n := len(profile)
	if n == 0 || cells <= 0 {
		return nil
	}

	nominal := make([]float64, cells+1)
	for k := range nominal {
		nominal[k] = float64(k) * float64(n-1) / float64(cells)
	}
	dist := make([]float64, n)
	for i := range dist {
		d := math.Inf(1)
		for _, p := range nominal {
			d = math.Min(d, math.Abs(float64(i)-p))
		}
		dist[i] = d
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if profile[ia] != profile[ib] {
			return profile[ia] < profile[ib]
		}
		if dist[ia] != dist[ib] {
			return dist[ia] < dist[ib]
		}
		return ia < ib
	})

	accepted := make([]int, 0, cells+1)
	for _, pos := range order {
		if farFromAll(pos, accepted, minSpacing) {
			accepted = append(accepted, pos)
			if len(accepted) == cells+1 {
				break
			}
		}
	}
	sort.Ints(accepted)
	return accepted
}

func farFromAll(pos int, accepted []int, minSpacing int) bool {
	for _, a := range accepted {
		d := pos - a
		if d < 0 {
			d = -d
		}
		if d < minSpacing {
			return false
		}
	}
	return true
}

func spacingWithin(boundaries []int, minSpacing, maxSpacing int) bool {
	for i := 1; i < len(boundaries); i++ {
		gap := boundaries[i] - boundaries[i-1]
		if gap < minSpacing || gap > maxSpacing {
			return false
		}
	}
	return true
}
