package tile

import (
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// RowSums returns the sum of each pixel row.
func RowSums(m gocv.Mat) []float64 {
	sums := gocv.NewMat()
	defer sums.Close()
	gocv.Reduce(m, &sums, 1, gocv.ReduceSum, gocv.MatTypeCV64F)

	out := make([]float64, sums.Rows())
	for y := range out {
		out[y] = sums.GetDoubleAt(y, 0)
	}
	return out
}

// IsEmpty reports whether the population variance of the per-row sums is
// below threshold. Tiles with no visible structure have nearly identical
// rows.
func IsEmpty(m gocv.Mat, threshold float64) (bool, float64) {
	rows := RowSums(m)
	if len(rows) == 0 {
		return true, 0
	}
	_, variance := stat.PopMeanVariance(rows, nil)
	return variance < threshold, variance
}
