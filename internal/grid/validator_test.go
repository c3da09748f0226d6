package grid

import (
	"testing"

	"plate-scanner/internal/tile"

	"github.com/stretchr/testify/assert"
)

// matrix builds rows x cols results, all with growth except the listed
// cells.
func matrix(rows, cols int, empty ...[2]int) [][]tile.Result {
	m := make([][]tile.Result, rows)
	for r := range m {
		m[r] = make([]tile.Result, cols)
		for c := range m[r] {
			m[r][c] = tile.Result{Row: r, Column: c, Size: 500}
		}
	}
	for _, rc := range empty {
		m[rc[0]][rc[1]] = tile.Result{Row: rc[0], Column: rc[1], Empty: true}
	}
	return m
}

func TestValidateRowThreshold(t *testing.T) {
	// 5 columns: floor(5/2)+1 = 3 empties is suspect, 2 is not.
	v := Validate(matrix(4, 5, [2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2}))
	assert.True(t, v.Suspect)
	assert.Equal(t, []int{0}, v.Rows)
	assert.Empty(t, v.Columns)

	v = Validate(matrix(4, 5, [2]int{0, 0}, [2]int{0, 1}))
	assert.False(t, v.Suspect)
}

func TestValidateColumnThreshold(t *testing.T) {
	// 6 rows: floor(6/2)+1 = 4 empties is suspect, 3 is not.
	v := Validate(matrix(6, 8, [2]int{0, 3}, [2]int{1, 3}, [2]int{2, 3}, [2]int{3, 3}))
	assert.True(t, v.Suspect)
	assert.Equal(t, []int{3}, v.Columns)
	assert.Empty(t, v.Rows)

	v = Validate(matrix(6, 8, [2]int{0, 3}, [2]int{1, 3}, [2]int{2, 3}))
	assert.False(t, v.Suspect)
}

func TestValidateCountsSizeZeroEvenIfNotFlaggedEmpty(t *testing.T) {
	m := matrix(2, 2)
	m[1][0].Size = 0
	m[1][1].Size = 0
	v := Validate(m)
	assert.True(t, v.Suspect)
	assert.Equal(t, []int{1}, v.Rows)
}

func TestValidateEmptyMatrix(t *testing.T) {
	assert.False(t, Validate(nil).Suspect)
}
