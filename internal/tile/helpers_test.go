package tile

import (
	"plate-scanner/internal/roi"
	"plate-scanner/pkg/geometry"

	"gocv.io/x/gocv"
)

const (
	background = 30
	colony     = 220
)

func flatTile(w, h int, value uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(value), 0, 0, 0), h, w, gocv.MatTypeCV8U)
}

// paintDisc sets every pixel with (x-cx)^2+(y-cy)^2 <= r^2.
func paintDisc(m gocv.Mat, cx, cy, r int, value uint8) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r && y >= 0 && x >= 0 && y < m.Rows() && x < m.Cols() {
				m.SetUCharAt(y, x, value)
			}
		}
	}
}

func paintRect(m gocv.Mat, x0, y0, w, h int, value uint8) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			m.SetUCharAt(y, x, value)
		}
	}
}

func tileAt(gray gocv.Mat, x, y int) Tile {
	return Tile{
		ROI:   roi.Rect(geometry.RectInt{X: x, Y: y, Width: gray.Cols(), Height: gray.Rows()}),
		Gray:  gray,
		Color: gocv.NewMat(),
	}
}
