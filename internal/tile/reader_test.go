package tile

import (
	"math"
	"testing"

	"plate-scanner/internal/roi"
	"plate-scanner/internal/settings"
	"plate-scanner/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestIsEmptyOnFlatTile(t *testing.T) {
	m := flatTile(100, 100, background)
	defer m.Close()

	empty, variance := IsEmpty(m, settings.DefaultVarianceThreshold)
	assert.True(t, empty)
	assert.Zero(t, variance)
}

func TestRowSums(t *testing.T) {
	m := flatTile(4, 3, 1)
	defer m.Close()
	paintRect(m, 0, 1, 4, 1, 10)

	assert.Equal(t, []float64{4, 40, 4}, RowSums(m))
}

func TestReaderReturnsEmptyWhenRowsAreUniform(t *testing.T) {
	// A vertical bar gives every row the same sum, so the pre-filter must
	// reject the tile whatever it contains.
	m := flatTile(100, 100, background)
	defer m.Close()
	paintRect(m, 40, 0, 20, 100, colony)

	res := OpacityReader{}.Read(tileAt(m, 0, 0), settings.Default())
	assert.True(t, res.Empty)
	assert.Zero(t, res.Size)
	assert.Nil(t, res.ColonyROI)
	assert.Nil(t, res.Center)
}

func TestReaderMeasuresDisc(t *testing.T) {
	m := flatTile(100, 100, background)
	defer m.Close()
	paintDisc(m, 50, 50, 20, colony)

	res := OpacityReader{}.Read(tileAt(m, 200, 100), settings.Default())
	require.False(t, res.Empty)

	assert.InDelta(t, 1253, res.Area, 10)
	assert.Equal(t, res.Area+int(math.Round(res.Perimeter)), res.Size)
	assert.GreaterOrEqual(t, res.Size, 1370)
	assert.LessOrEqual(t, res.Size, 1450)
	assert.Greater(t, res.Circularity, 0.9)
	assert.LessOrEqual(t, res.Circularity, 1.0)
	assert.Equal(t, colony*res.Area, res.Opacity)

	require.NotNil(t, res.Center)
	assert.InDelta(t, 250, res.Center.X, 0.5)
	assert.InDelta(t, 150, res.Center.Y, 0.5)

	require.NotNil(t, res.ColonyROI)
	assert.Equal(t, roi.KindMask, res.ColonyROI.Kind)
	assert.True(t, res.ColonyROI.Contains(250, 150))
	assert.False(t, res.ColonyROI.Contains(50, 50))
	assert.Equal(t, res.Area, res.ColonyROI.Area())
}

func TestReaderKeepsOnlyLargestParticle(t *testing.T) {
	m := flatTile(100, 100, background)
	defer m.Close()
	paintRect(m, 10, 10, 10, 10, colony) // area 100
	paintRect(m, 60, 70, 8, 5, colony)   // area 40

	res := OpacityReader{}.Read(tileAt(m, 0, 0), settings.Default())
	require.False(t, res.Empty)

	assert.Equal(t, 100, res.Area)
	assert.InDelta(t, 36, res.Perimeter, 1e-9)
	assert.Equal(t, 136, res.Size)
	assert.Equal(t, geometry.RectInt{X: 10, Y: 10, Width: 10, Height: 10}, res.ColonyROI.Bounds)
	assert.Equal(t, colony*100, res.Opacity)
}

func TestReaderEmptyWhenNoParticleSurvives(t *testing.T) {
	m := flatTile(50, 50, background)
	defer m.Close()
	paintRect(m, 20, 20, 2, 2, colony)

	res := OpacityReader{}.Read(tileAt(m, 0, 0), settings.Default().WithVarianceThreshold(0))
	assert.True(t, res.Empty)
	assert.Zero(t, res.Size)
	assert.Nil(t, res.ColonyROI)
}

func TestReaderUserDefinedOval(t *testing.T) {
	m := flatTile(40, 40, background)
	defer m.Close()

	oval := roi.Oval(geometry.RectInt{X: 400, Y: 300, Width: 40, Height: 40})
	tl := Tile{Row: 1, Column: 2, ROI: oval, Gray: m, Color: gocv.NewMat()}

	res := OpacityReader{}.Read(tl, settings.Default().WithUserDefinedROI(true))
	require.False(t, res.Empty)
	assert.Equal(t, oval.Area(), res.Size)
	assert.Equal(t, CircularityNotMeasured, res.Circularity)
	assert.Equal(t, geometry.Point2D{X: 420, Y: 320}, *res.Center)
	assert.Equal(t, background*oval.Area(), res.Opacity)
	assert.Equal(t, background*40*40, res.WholeTileOpacity)
	assert.Equal(t, 1, res.Row)
	assert.Equal(t, 2, res.Column)
}

func TestDarkColonyReaderOnGray(t *testing.T) {
	m := flatTile(100, 100, colony)
	defer m.Close()
	paintDisc(m, 50, 50, 20, background)

	res := DarkColonyReader{}.Read(tileAt(m, 0, 0), settings.Default())
	require.False(t, res.Empty)
	assert.GreaterOrEqual(t, res.Size, 1370)
	assert.LessOrEqual(t, res.Size, 1450)
	assert.Equal(t, (255-background)*res.Area, res.Opacity)
}

func TestDarkColonyReaderUsesColorBrightness(t *testing.T) {
	gray := flatTile(100, 100, colony)
	defer gray.Close()
	color := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(colony, colony, colony, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer color.Close()
	for y := 30; y <= 70; y++ {
		for x := 30; x <= 70; x++ {
			if (x-50)*(x-50)+(y-50)*(y-50) <= 400 {
				color.SetUCharAt(y, x*3+0, background)
				color.SetUCharAt(y, x*3+1, background)
				color.SetUCharAt(y, x*3+2, background)
			}
		}
	}

	tl := tileAt(gray, 0, 0)
	tl.Color = color
	res := DarkColonyReader{}.Read(tl, settings.Default())
	require.False(t, res.Empty)
	assert.Greater(t, res.Circularity, 0.9)
}

func TestReaderHandlesSixteenBitTiles(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(background*256, 0, 0, 0), 100, 100, gocv.MatTypeCV16UC1)
	defer m.Close()
	bright := uint16(colony * 256)
	for y := 30; y <= 70; y++ {
		for x := 30; x <= 70; x++ {
			if (x-50)*(x-50)+(y-50)*(y-50) <= 400 {
				m.SetShortAt(y, x, int16(bright))
			}
		}
	}

	res := OpacityReader{}.Read(tileAt(m, 0, 0), settings.Default())
	require.False(t, res.Empty)
	assert.InDelta(t, 1253, res.Area, 10)
	assert.Equal(t, int(bright)*res.Area, res.Opacity)
}

func TestCircularity(t *testing.T) {
	assert.Zero(t, Circularity(100, 0))
	assert.InDelta(t, 1, Circularity(math.Pi*100, 2*math.Pi*10), 1e-12)
	assert.Equal(t, 1.0, Circularity(1000, 10))
	assert.InDelta(t, math.Pi/4, Circularity(100, 40), 1e-12)
}

func TestLargestPrefersFirstOnTie(t *testing.T) {
	best, ok := Largest([]Particle{{Area: 5, Perimeter: 1}, {Area: 9}, {Area: 9, Perimeter: 2}})
	require.True(t, ok)
	assert.Equal(t, 9, best.Area)
	assert.Zero(t, best.Perimeter)

	_, ok = Largest(nil)
	assert.False(t, ok)
}
