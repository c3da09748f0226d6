package grid

import "plate-scanner/internal/tile"

// Verdict is the advisory outcome of Validate. Rows and Columns list the
// zero-based indices that are more than half empty.
type Verdict struct {
	Suspect bool  `json:"suspect"`
	Rows    []int `json:"rows,omitempty"`
	Columns []int `json:"columns,omitempty"`
}

// Validate flags a gridding where any row or column has more than half of
// its tiles at size 0. A systematically empty line is more likely a
// misplaced grid than missing growth.
func Validate(results [][]tile.Result) Verdict {
	var v Verdict
	rows := len(results)
	if rows == 0 {
		return v
	}
	cols := len(results[0])

	for r := 0; r < rows; r++ {
		empty := 0
		for c := 0; c < cols; c++ {
			if results[r][c].Size == 0 {
				empty++
			}
		}
		if empty > cols/2 {
			v.Rows = append(v.Rows, r)
		}
	}

	for c := 0; c < cols; c++ {
		empty := 0
		for r := 0; r < rows; r++ {
			if results[r][c].Size == 0 {
				empty++
			}
		}
		if empty > rows/2 {
			v.Columns = append(v.Columns, c)
		}
	}

	v.Suspect = len(v.Rows) > 0 || len(v.Columns) > 0
	return v
}
