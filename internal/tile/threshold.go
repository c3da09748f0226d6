package tile

import (
	"image"

	"gocv.io/x/gocv"
)

// LocalMeanThreshold marks pixels brighter than the mean of the
// (2*radius+1)^2 window around them. 8-bit input goes through OpenCV's
// adaptive threshold; deeper input is compared in float so no precision is
// lost before binarization. The result is CV_8U with 255 for foreground.
func LocalMeanThreshold(src gocv.Mat, radius int) gocv.Mat {
	block := 2*radius + 1

	if src.Type() == gocv.MatTypeCV8UC1 {
		dst := gocv.NewMat()
		gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, block, 0)
		return dst
	}

	f := gocv.NewMat()
	defer f.Close()
	src.ConvertTo(&f, gocv.MatTypeCV32F)

	mean := gocv.NewMat()
	defer mean.Close()
	gocv.Blur(f, &mean, image.Point{X: block, Y: block})

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(f, mean, &diff)

	// The 8-bit path compares against the mean rounded to an integer. For
	// integer pixels, p > round(mean) holds exactly when p - mean > 0.5, so
	// both depths agree on borderline pixels.
	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(diff, &bin, 0.5, 255, gocv.ThresholdBinary)

	dst := gocv.NewMat()
	bin.ConvertTo(&dst, gocv.MatTypeCV8U)
	return dst
}
