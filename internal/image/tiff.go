package image

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimeter = 3
)

// extractTIFFDPI reads the resolution tags of the first IFD.
func extractTIFFDPI(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return readTIFFDPI(file)
}

func readTIFFDPI(r io.ReaderAt) (float64, error) {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	ifd := int64(order.Uint32(header[4:8]))
	count := make([]byte, 2)
	if _, err := r.ReadAt(count, ifd); err != nil {
		return 0, err
	}
	entries := int(order.Uint16(count))

	var xRes, yRes float64
	unit := uint16(2) // inches unless told otherwise

	entry := make([]byte, 12)
	for i := 0; i < entries; i++ {
		if _, err := r.ReadAt(entry, ifd+2+int64(i)*12); err != nil {
			return 0, err
		}
		tag := order.Uint16(entry[0:2])
		fieldType := order.Uint16(entry[2:4])

		switch {
		case tag == tagXResolution && fieldType == typeRational:
			xRes = readRational(r, int64(order.Uint32(entry[8:12])), order)
		case tag == tagYResolution && fieldType == typeRational:
			yRes = readRational(r, int64(order.Uint32(entry[8:12])), order)
		case tag == tagResolutionUnit && fieldType == typeShort:
			unit = order.Uint16(entry[8:10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}
	if unit == unitCentimeter {
		dpi *= 2.54
	}
	return dpi, nil
}

func readRational(r io.ReaderAt, offset int64, order binary.ByteOrder) float64 {
	buf := make([]byte, 8)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0
	}
	num := order.Uint32(buf[0:4])
	denom := order.Uint32(buf[4:8])
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
