package analysis

import (
	"image"
	"image/color"

	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/log"
	"plate-scanner/internal/roi"
	"plate-scanner/internal/tile"
	"plate-scanner/pkg/colorutil"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

// renderOverlay draws the grid and, when tiles are given, the colony
// outlines over an 8-bit copy of the plate.
func renderOverlay(plate *pimage.Plate, seg *grid.Segmentation, tiles [][]tile.Result) image.Image {
	canvas := displayCopy(plate)
	defer canvas.Close()

	if seg != nil {
		lineColor := colorutil.GridLine
		if seg.ErrorOccurred() {
			lineColor = colorutil.FailedBorder
		}
		drawBoundaries(&canvas, seg, lineColor)
	}

	for _, row := range tiles {
		for _, t := range row {
			drawTile(&canvas, seg, t)
		}
	}

	img, err := canvas.ToImage()
	if err != nil {
		log.Warnf("[Overlay] failed to convert overlay: %v", err)
		return nil
	}
	return img
}

// displayCopy returns an 8-bit BGR copy of the plate.
func displayCopy(plate *pimage.Plate) gocv.Mat {
	if plate.HasColor() {
		return plate.Color.Clone()
	}

	gray8 := gocv.NewMat()
	defer gray8.Close()
	if plate.Is16Bit() {
		plate.Gray.ConvertToWithParams(&gray8, gocv.MatTypeCV8U, 1.0/257, 0)
	} else {
		plate.Gray.CopyTo(&gray8)
	}

	canvas := gocv.NewMat()
	gocv.CvtColor(gray8, &canvas, gocv.ColorGrayToBGR)
	return canvas
}

func drawBoundaries(canvas *gocv.Mat, seg *grid.Segmentation, c color.RGBA) {
	top, bottom := 0, canvas.Rows()-1
	if n := len(seg.RowBoundaries); n > 1 {
		top, bottom = seg.RowBoundaries[0], seg.RowBoundaries[n-1]
	}
	left, right := 0, canvas.Cols()-1
	if n := len(seg.ColumnBoundaries); n > 1 {
		left, right = seg.ColumnBoundaries[0], seg.ColumnBoundaries[n-1]
	}

	for _, x := range seg.ColumnBoundaries {
		gocv.Line(canvas, image.Pt(x, top), image.Pt(x, bottom), c, 1)
	}
	for _, y := range seg.RowBoundaries {
		gocv.Line(canvas, image.Pt(left, y), image.Pt(right, y), c, 1)
	}
}

func drawTile(canvas *gocv.Mat, seg *grid.Segmentation, t tile.Result) {
	if t.Empty || t.ColonyROI == nil {
		if seg != nil && seg.Grid != nil {
			center := seg.Cell(t.Row, t.Column).Center().Round()
			gocv.Circle(canvas, center.Image(), 2, colorutil.EmptyMarker, -1)
		}
		return
	}

	colony := *t.ColonyROI
	switch {
	case colony.Kind == roi.KindOval:
		b := colony.Bounds
		center := colony.Center().Round()
		gocv.Ellipse(canvas, center.Image(), image.Pt(b.Width/2, b.Height/2), 0, 0, 360, colorutil.ColonyBorder, 1)
	case len(colony.Outline) > 1:
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{toImagePoints(colony.Outline)})
		defer pv.Close()
		gocv.DrawContours(canvas, pv, 0, colorutil.ColonyBorder, 1)
	default:
		gocv.Rectangle(canvas, colony.Bounds.Image(), colorutil.ColonyBorder, 1)
	}
}

func toImagePoints(pts []geometry.PointInt) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Image()
	}
	return out
}
