package tile

import (
	"plate-scanner/internal/settings"

	"gocv.io/x/gocv"
)

// OpacityReader measures bright colonies on the grayscale tile; opacity is
// the summed gray level under the colony.
type OpacityReader struct{}

func (OpacityReader) Name() string { return "opacity" }

func (OpacityReader) Read(t Tile, s settings.Settings) Result {
	return measure(t.Gray, t, s)
}

// DarkColonyReader measures colonies darker than the agar. It works on the
// inverted HSB brightness of the color tile (the gray tile when no color is
// available), so opacity grows with how dark the colony is.
type DarkColonyReader struct{}

func (DarkColonyReader) Name() string { return "dark-colony" }

func (DarkColonyReader) Read(t Tile, s settings.Settings) Result {
	inverted := invertedBrightness(t)
	defer inverted.Close()
	return measure(inverted, t, s)
}

func invertedBrightness(t Tile) gocv.Mat {
	inverted := gocv.NewMat()

	if t.Color.Empty() {
		if !t.Gray.Empty() {
			gocv.BitwiseNot(t.Gray, &inverted)
		}
		return inverted
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(t.Color, &hsv, gocv.ColorBGRToHSV)

	channels := gocv.Split(hsv)
	for _, ch := range channels {
		defer ch.Close()
	}
	gocv.BitwiseNot(channels[2], &inverted)
	return inverted
}
