// Package output serializes analysis results.
//
// The "iris" format is the tab separated report colony screens are
// compared against: a block of '#' header lines followed by one line per
// tile. The "jsonl" format writes the whole result as a single JSON object
// per plate, suited to appending many plates to one file.
package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"plate-scanner/internal/analysis"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/version"

	jsoniter "github.com/json-iterator/go"
)

// Meta carries the header fields that are not part of the result itself.
type Meta struct {
	Filename string
	Profile  string
	Version  string
}

// WriterFunc writes one plate result to w.
type WriterFunc func(w io.Writer, res *analysis.Result, meta Meta) error

var writers = map[string]WriterFunc{
	"iris":  WriteIris,
	"jsonl": WriteJSONLines,
}

var extensions = map[string]string{
	"iris":  ".iris",
	"jsonl": ".jsonl",
}

// Get returns the writer registered under format.
func Get(format string) (WriterFunc, error) {
	w, ok := writers[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (have %v)", format, Formats())
	}
	return w, nil
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extension is the file suffix used for format, or "" if unknown.
func Extension(format string) string {
	return extensions[format]
}

// WriteIris writes the header and the per-tile table.
// A result without tiles (failed segmentation) gets the header only.
func WriteIris(w io.Writer, res *analysis.Result, meta Meta) error {
	if res == nil {
		return fmt.Errorf("write iris: nil result")
	}
	bw := bufio.NewWriter(w)

	ver := meta.Version
	if ver == "" {
		ver = version.String()
	}
	fmt.Fprintf(bw, "#Iris output\n")
	fmt.Fprintf(bw, "#Profile: %s\n", meta.Profile)
	fmt.Fprintf(bw, "#Iris version: %s\n", ver)
	fmt.Fprintf(bw, "#%s\n", meta.Filename)

	if seg := res.Segmentation; seg != nil && !seg.ErrorOccurred() {
		fmt.Fprintf(bw, "#top left of the grid found at (%d , %d)\n", seg.TopLeft.X, seg.TopLeft.Y)
		fmt.Fprintf(bw, "#bottom right of the grid found at (%d , %d)\n", seg.BottomRight.X, seg.BottomRight.Y)
	}

	if res.Tiles != nil {
		fmt.Fprintf(bw, "row\tcolumn\tsize\tcircularity\topacity\n")
		for i, row := range res.Tiles {
			for j, t := range row {
				fmt.Fprintf(bw, "%d\t%d\t%d\t%.3f\t%d\n", i+1, j+1, t.Size, t.Circularity, t.Opacity)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write iris: %w", err)
	}
	return nil
}

// WriteFailure writes the human readable reason a plate was not measured.
func WriteFailure(w io.Writer, meta Meta, flags grid.Flags) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s: unable to process picture %s\n", meta.Profile, meta.Filename)
	fmt.Fprintf(bw, "Image segmentation algorithm failed:\n")
	for _, f := range flags.Failures() {
		fmt.Fprintf(bw, "\t%s\n", f)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write failure report: %w", err)
	}
	return nil
}

// WriteSuspect writes the warning for a plate whose rows or columns are
// mostly empty.
func WriteSuspect(w io.Writer, meta Meta, v grid.Verdict) error {
	if !v.Suspect {
		return nil
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s: unable to process picture %s\n", meta.Profile, meta.Filename)
	fmt.Fprintf(bw, "Image segmentation algorithm failed:\n")
	fmt.Fprintf(bw, "\ttoo many empty rows/columns\n")
	for _, r := range v.Rows {
		fmt.Fprintf(bw, "\trow %d\n", r+1)
	}
	for _, c := range v.Columns {
		fmt.Fprintf(bw, "\tcolumn %d\n", c+1)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write suspect report: %w", err)
	}
	return nil
}

// jsonRecord is the line written by WriteJSONLines.
type jsonRecord struct {
	Filename string           `json:"filename"`
	Profile  string           `json:"profile"`
	Version  string           `json:"version"`
	Failures []string         `json:"failures,omitempty"`
	Result   *analysis.Result `json:"result"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSONLines writes res as one JSON object followed by a newline.
func WriteJSONLines(w io.Writer, res *analysis.Result, meta Meta) error {
	if res == nil {
		return fmt.Errorf("write jsonl: nil result")
	}
	rec := jsonRecord{
		Filename: meta.Filename,
		Profile:  meta.Profile,
		Version:  meta.Version,
		Result:   res,
	}
	if rec.Version == "" {
		rec.Version = version.Version
	}
	if res.Segmentation != nil {
		rec.Failures = res.Segmentation.Flags.Failures()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("write jsonl: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write jsonl: %w", err)
	}
	return nil
}
