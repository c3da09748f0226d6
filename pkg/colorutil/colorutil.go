// Package colorutil holds the palette of the diagnostic grid overlay.
package colorutil

import "image/color"

// Overlay colors used by the diagnostic grid image.
var (
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}

	GridLine     = Cyan
	ColonyBorder = Green
	EmptyMarker  = Yellow
	FailedBorder = Red
)
