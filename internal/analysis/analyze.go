// Package analysis runs the full plate pipeline: spacing, segmentation,
// per-tile reads, validation and the diagnostic overlay.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/log"
	"plate-scanner/internal/roi"
	"plate-scanner/internal/settings"
	"plate-scanner/internal/tile"
	"plate-scanner/pkg/geometry"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// Result is the plate-level report. It is complete and read-only once
// Analyze returns.
type Result struct {
	RunID  string `json:"run_id"`
	Source string `json:"source,omitempty"`
	Reader string `json:"reader"`

	Settings     settings.Settings  `json:"settings"`
	Segmentation *grid.Segmentation `json:"segmentation"`
	Tiles        [][]tile.Result    `json:"tiles"`
	Verdict      grid.Verdict       `json:"verdict"`

	// Overlay is set when Settings.SaveDiagnosticOverlay is on.
	Overlay image.Image `json:"-"`

	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Tile returns the result at (row, column).
func (r *Result) Tile(row, column int) tile.Result {
	return r.Tiles[row][column]
}

// Analyze measures every colony on the plate.
//
// A grid that cannot be found is reported as a *grid.GeometryError together
// with a Result carrying the partial segmentation and, if requested, the
// overlay. Cancelling ctx stops tiles that have not started yet.
func Analyze(ctx context.Context, plate *pimage.Plate, s settings.Settings, reader tile.Reader) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if plate == nil || plate.Gray.Empty() {
		return nil, pimage.ErrEmpty
	}
	if reader == nil {
		return nil, fmt.Errorf("no tile reader")
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Source:    plate.Path,
		Reader:    reader.Name(),
		StartedAt: time.Now(),
	}
	log.Debugw("[Analyze] start", "run", res.RunID, "source", plate.Path,
		"width", plate.Width(), "height", plate.Height(), "rows", s.Rows, "columns", s.Columns)

	var seg *grid.Segmentation
	if s.UserDefinedROI {
		seg = grid.EvenGrid(plate.Width(), plate.Height(), s)
	} else {
		s = grid.CalculateSpacing(plate.Width(), s)
		var err error
		seg, err = grid.Segment(plate.Gray, s)
		if err != nil {
			var geomErr *grid.GeometryError
			if !errors.As(err, &geomErr) {
				return nil, fmt.Errorf("segmentation: %w", err)
			}
			log.Warnf("[Analyze] %s: image segmentation failed: %s",
				describe(plate), strings.Join(geomErr.Flags.Failures(), ", "))
			res.Settings = s
			res.Segmentation = seg
			if s.SaveDiagnosticOverlay {
				res.Overlay = renderOverlay(plate, seg, nil)
			}
			res.Elapsed = time.Since(res.StartedAt)
			return res, err
		}
	}
	res.Settings = s
	res.Segmentation = seg

	tiles, err := readTiles(ctx, plate, seg, s, reader)
	if err != nil {
		return nil, err
	}
	res.Tiles = tiles

	res.Verdict = grid.Validate(tiles)
	if res.Verdict.Suspect {
		log.Warnf("[Analyze] %s: gridding suspect, more than half empty in rows %v columns %v",
			describe(plate), res.Verdict.Rows, res.Verdict.Columns)
	}

	if s.SaveDiagnosticOverlay {
		res.Overlay = renderOverlay(plate, seg, tiles)
	}

	res.Elapsed = time.Since(res.StartedAt)
	log.Infow("[Analyze] done", "run", res.RunID, "source", plate.Path,
		"colonies", countColonies(tiles), "suspect", res.Verdict.Suspect, "elapsed", res.Elapsed)
	return res, nil
}

// readTiles fans the cells out over a bounded pool; each worker writes only
// its own (row, column) slot.
func readTiles(ctx context.Context, plate *pimage.Plate, seg *grid.Segmentation, s settings.Settings, reader tile.Reader) ([][]tile.Result, error) {
	results := make([][]tile.Result, seg.Rows)
	for r := range results {
		results[r] = make([]tile.Result, seg.Columns)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.EffectiveWorkers())

	for r := 0; r < seg.Rows; r++ {
		for c := 0; c < seg.Columns; c++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[r][c] = readTile(plate, seg.Cell(r, c), r, c, s, reader)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readTile copies the cell's pixels out of the plate for the duration of
// one read.
func readTile(plate *pimage.Plate, cell roi.ROI, row, column int, s settings.Settings, reader tile.Reader) tile.Result {
	bounds := cell.Bounds.Intersect(plateBounds(plate))
	if bounds.Empty() {
		return tile.Result{Row: row, Column: column, Empty: true}
	}
	if bounds != cell.Bounds {
		if cell.Kind == roi.KindOval {
			cell = roi.Oval(bounds)
		} else {
			cell = roi.Rect(bounds)
		}
	}

	gray := cropClone(plate.Gray, bounds.Image())
	defer gray.Close()

	var color gocv.Mat
	if plate.HasColor() {
		color = cropClone(plate.Color, bounds.Image())
	} else {
		color = gocv.NewMat()
	}
	defer color.Close()

	return reader.Read(tile.Tile{
		Row:    row,
		Column: column,
		ROI:    cell,
		Gray:   gray,
		Color:  color,
	}, s)
}

func cropClone(m gocv.Mat, r image.Rectangle) gocv.Mat {
	view := m.Region(r)
	defer view.Close()
	return view.Clone()
}

func plateBounds(plate *pimage.Plate) geometry.RectInt {
	return geometry.RectInt{Width: plate.Width(), Height: plate.Height()}
}

func describe(plate *pimage.Plate) string {
	if plate.Path != "" {
		return plate.Path
	}
	return fmt.Sprintf("%dx%d plate", plate.Width(), plate.Height())
}

func countColonies(tiles [][]tile.Result) int {
	n := 0
	for _, row := range tiles {
		for _, t := range row {
			if !t.Empty {
				n++
			}
		}
	}
	return n
}
