package tile

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Open removes speckle with one 3x3 erosion+dilation, in place.
func Open(mask *gocv.Mat) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()
	gocv.MorphologyEx(*mask, mask, gocv.MorphOpen, kernel)
}

// FillHoles fills every outer contour solid, closing gaps inside colonies.
func FillHoles(mask *gocv.Mat) {
	if mask.Empty() {
		return
	}

	filled := zeros(mask.Rows(), mask.Cols())
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		gocv.DrawContours(&filled, contours, i, white, -1)
	}

	mask.Close()
	*mask = filled
}

func zeros(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}
