// Package image loads plate photographs into OpenCV matrices.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// ErrEmpty is returned for images without pixels.
var ErrEmpty = errors.New("empty image")

// Plate is a cropped plate photograph. Gray keeps the source bit depth
// (CV_8UC1 or CV_16UC1); Color is an 8-bit BGR copy and may be empty for
// grayscale sources.
type Plate struct {
	Path  string
	Gray  gocv.Mat
	Color gocv.Mat
	DPI   float64
}

// NewPlate wraps existing matrices. The plate takes ownership of both.
func NewPlate(gray, color gocv.Mat) (*Plate, error) {
	if gray.Empty() {
		return nil, ErrEmpty
	}
	switch gray.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV16UC1:
	default:
		return nil, fmt.Errorf("unsupported grayscale type %v", gray.Type())
	}
	return &Plate{Gray: gray, Color: color}, nil
}

// Load decodes an image file into a Plate.
func Load(path string) (*Plate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	plate, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	plate.Path = path

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if dpi, err := extractTIFFDPI(path); err == nil {
			plate.DPI = dpi
		}
	}

	return plate, nil
}

// FromImage converts a decoded Go image. 16-bit grayscale keeps its depth;
// every other format becomes 8-bit BGR plus an 8-bit gray channel.
func FromImage(src image.Image) (*Plate, error) {
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, ErrEmpty
	}

	switch img := src.(type) {
	case *image.Gray:
		return NewPlate(grayToMat(img), gocv.NewMat())
	case *image.Gray16:
		return NewPlate(gray16ToMat(img), gocv.NewMat())
	}

	color := imageToMat(src)
	gray := gocv.NewMat()
	gocv.CvtColor(color, &gray, gocv.ColorBGRToGray)
	return NewPlate(gray, color)
}

// Close releases the matrices.
func (p *Plate) Close() {
	p.Gray.Close()
	p.Color.Close()
}

// Width returns the image width in pixels.
func (p *Plate) Width() int {
	return p.Gray.Cols()
}

// Height returns the image height in pixels.
func (p *Plate) Height() int {
	return p.Gray.Rows()
}

// HasColor reports whether a BGR copy is available.
func (p *Plate) HasColor() bool {
	return !p.Color.Empty()
}

// Is16Bit reports whether the gray channel is 16 bits deep.
func (p *Plate) Is16Bit() bool {
	return p.Gray.Type() == gocv.MatTypeCV16UC1
}

func grayToMat(img *image.Gray) gocv.Mat {
	b := img.Bounds()
	mat := gocv.NewMatWithSize(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			mat.SetUCharAt(y, x, img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	return mat
}

func gray16ToMat(img *image.Gray16) gocv.Mat {
	b := img.Bounds()
	mat := gocv.NewMatWithSize(b.Dy(), b.Dx(), gocv.MatTypeCV16UC1)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			mat.SetShortAt(y, x, int16(img.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
		}
	}
	return mat
}

// imageToMat converts a Go image to an 8-bit BGR Mat.
func imageToMat(src image.Image) gocv.Mat {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(bl>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat
}

var extensions = map[string]bool{
	".tif": true, ".tiff": true, ".png": true, ".jpg": true, ".jpeg": true,
}

// IsSupportedFormat reports whether Load can decode path, judged by its
// extension.
func IsSupportedFormat(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}
