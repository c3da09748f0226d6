package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"plate-scanner/internal/analysis"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/settings"
	"plate-scanner/internal/tile"
	"plate-scanner/pkg/geometry"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		RunID:    "run-1",
		Source:   "plate.jpg",
		Reader:   "opacity",
		Settings: settings.Default().WithLayout(1, 2),
		Segmentation: &grid.Segmentation{
			Rows:             1,
			Columns:          2,
			ColumnBoundaries: []int{0, 100, 200},
			RowBoundaries:    []int{10, 110},
			TopLeft:          geometry.PointInt{X: 0, Y: 10},
			BottomRight:      geometry.PointInt{X: 100, Y: 10},
		},
		Tiles: [][]tile.Result{{
			{Row: 0, Column: 0, Size: 1382, Circularity: 0.91234, Opacity: 250000},
			{Row: 0, Column: 1, Empty: true},
		}},
	}
}

func TestWriteIris(t *testing.T) {
	var buf bytes.Buffer
	err := WriteIris(&buf, sampleResult(), Meta{Filename: "plate.jpg", Profile: "opacity96", Version: "1.0, revision id: abc"})
	require.NoError(t, err)

	want := strings.Join([]string{
		"#Iris output",
		"#Profile: opacity96",
		"#Iris version: 1.0, revision id: abc",
		"#plate.jpg",
		"#top left of the grid found at (0 , 10)",
		"#bottom right of the grid found at (100 , 10)",
		"row\tcolumn\tsize\tcircularity\topacity",
		"1\t1\t1382\t0.912\t250000",
		"1\t2\t0\t0.000\t0",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteIrisDefaultVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIris(&buf, sampleResult(), Meta{Filename: "x", Profile: "p"}))
	assert.Contains(t, buf.String(), "#Iris version: 0.1.0, revision id: ")
}

func TestWriteIrisFailedSegmentation(t *testing.T) {
	res := sampleResult()
	res.Tiles = nil
	res.Segmentation.Flags = grid.Flags{NotEnoughColumnsFound: true}

	var buf bytes.Buffer
	require.NoError(t, WriteIris(&buf, res, Meta{Filename: "plate.jpg", Profile: "opacity96"}))
	out := buf.String()
	assert.NotContains(t, out, "top left")
	assert.NotContains(t, out, "row\tcolumn")
	assert.True(t, strings.HasPrefix(out, "#Iris output\n"))
}

func TestWriteIrisNil(t *testing.T) {
	assert.Error(t, WriteIris(&bytes.Buffer{}, nil, Meta{}))
}

func TestWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	flags := grid.Flags{NotEnoughRowsFound: true, IncorrectColumnSpacing: true}
	require.NoError(t, WriteFailure(&buf, Meta{Filename: "a.jpg", Profile: "opacity96"}, flags))
	assert.Equal(t,
		"opacity96: unable to process picture a.jpg\n"+
			"Image segmentation algorithm failed:\n"+
			"\tnot enough rows found\n"+
			"\tincorrect column spacing\n",
		buf.String())
}

func TestWriteSuspect(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSuspect(&buf, Meta{Filename: "a.jpg", Profile: "p"}, grid.Verdict{}))
	assert.Empty(t, buf.String())

	require.NoError(t, WriteSuspect(&buf, Meta{Filename: "a.jpg", Profile: "p"},
		grid.Verdict{Suspect: true, Rows: []int{1}, Columns: []int{0}}))
	out := buf.String()
	assert.Contains(t, out, "\ttoo many empty rows/columns\n")
	assert.Contains(t, out, "\trow 2\n")
	assert.Contains(t, out, "\tcolumn 1\n")
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w, err := Get("jsonl")
	require.NoError(t, err)
	require.NoError(t, w(&buf, sampleResult(), Meta{Filename: "plate.jpg", Profile: "opacity96"}))
	require.NoError(t, w(&buf, sampleResult(), Meta{Filename: "plate2.jpg", Profile: "opacity96"}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var rec struct {
		Filename string `json:"filename"`
		Version  string `json:"version"`
		Result   struct {
			RunID string `json:"run_id"`
			Tiles [][]struct {
				Size int `json:"size"`
			} `json:"tiles"`
		} `json:"result"`
	}
	require.NoError(t, jsoniter.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "plate2.jpg", rec.Filename)
	assert.Equal(t, "0.1.0", rec.Version)
	assert.Equal(t, "run-1", rec.Result.RunID)
	assert.Equal(t, 1382, rec.Result.Tiles[0][0].Size)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"iris", "jsonl"}, Formats())
	assert.Equal(t, ".iris", Extension("iris"))
	assert.Equal(t, ".jsonl", Extension("jsonl"))
	assert.Equal(t, "", Extension("csv"))
	_, err := Get("csv")
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestReportWriteErrorsAreReturned(t *testing.T) {
	meta := Meta{Filename: "a.jpg", Profile: "p"}
	assert.ErrorContains(t, WriteFailure(failingWriter{}, meta, grid.Flags{NotEnoughRowsFound: true}), "disk full")
	assert.ErrorContains(t, WriteSuspect(failingWriter{}, meta, grid.Verdict{Suspect: true, Rows: []int{0}}), "disk full")
	assert.ErrorContains(t, WriteIris(failingWriter{}, sampleResult(), meta), "disk full")
}
