// Command gridtest runs grid segmentation on a plate image and prints the
// boundaries it found.
package main

import (
	"errors"
	"flag"
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/log"
	"plate-scanner/internal/profile"
	"plate-scanner/internal/settings"

	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to plate image (TIFF, PNG, or JPEG)")
	profileName := flag.String("profile", "opacity96", "Profile giving the plate layout")
	rows := flag.Int("rows", 0, "Override number of rows")
	cols := flag.Int("cols", 0, "Override number of columns")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: gridtest -image <path> [-profile opacity96] [-rows 8 -cols 12]")
		os.Exit(1)
	}
	if err := log.Init(log.Options{Debug: *debug}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	prof, ok := profile.Get(*profileName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown profile %q\n", *profileName)
		os.Exit(1)
	}
	s := prof.Apply(settings.Default())
	if *rows > 0 || *cols > 0 {
		r, c := s.Rows, s.Columns
		if *rows > 0 {
			r = *rows
		}
		if *cols > 0 {
			c = *cols
		}
		s = s.WithLayout(r, c)
	}

	plate, err := pimage.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer plate.Close()

	fmt.Printf("Loaded image: %dx%d pixels", plate.Width(), plate.Height())
	if plate.DPI > 0 {
		fmt.Printf(" at %.0f DPI", plate.DPI)
	}
	fmt.Println()

	s = grid.CalculateSpacing(plate.Width(), s)
	fmt.Printf("Layout: %d rows x %d columns\n", s.Rows, s.Columns)
	fmt.Printf("Spacing: nominal %d px, accepted %d-%d px\n",
		grid.NominalSpacing(plate.Width(), s), s.MinSpacing, s.MaxSpacing)

	seg, err := grid.Segment(plate.Gray, s)
	var geomErr *grid.GeometryError
	if err != nil && !errors.As(err, &geomErr) {
		fmt.Fprintf(os.Stderr, "Segmentation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nColumn boundaries (%d): %v\n", len(seg.ColumnBoundaries), seg.ColumnBoundaries)
	printGaps(seg.ColumnBoundaries)
	fmt.Printf("Row boundaries (%d): %v\n", len(seg.RowBoundaries), seg.RowBoundaries)
	printGaps(seg.RowBoundaries)

	if geomErr != nil {
		fmt.Printf("\nImage segmentation algorithm failed:\n")
		for _, f := range geomErr.Flags.Failures() {
			fmt.Printf("\t%s\n", f)
		}
		os.Exit(2)
	}

	fmt.Printf("\nTop left of the grid found at (%d , %d)\n", seg.TopLeft.X, seg.TopLeft.Y)
	fmt.Printf("Bottom right of the grid found at (%d , %d)\n", seg.BottomRight.X, seg.BottomRight.Y)
}

func printGaps(b []int) {
	if len(b) < 2 {
		return
	}
	gaps := make([]int, len(b)-1)
	for i := range gaps {
		gaps[i] = b[i+1] - b[i]
	}
	fmt.Printf("  gaps: %v\n", gaps)
}
