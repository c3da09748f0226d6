package grid

import (
	"strings"
)

// Flags records why a segmentation failed. Any set flag means the grid
// matrix must not be read.
type Flags struct {
	NotEnoughColumnsFound  bool `json:"not_enough_columns_found"`
	NotEnoughRowsFound     bool `json:"not_enough_rows_found"`
	IncorrectColumnSpacing bool `json:"incorrect_column_spacing"`
	IncorrectRowSpacing    bool `json:"incorrect_row_spacing"`
}

// ErrorOccurred is the OR of all flags.
func (f Flags) ErrorOccurred() bool {
	return f.NotEnoughColumnsFound || f.NotEnoughRowsFound ||
		f.IncorrectColumnSpacing || f.IncorrectRowSpacing
}

// Failures lists the set flags in report order.
func (f Flags) Failures() []string {
	var out []string
	if f.NotEnoughColumnsFound {
		out = append(out, "not enough columns found")
	}
	if f.NotEnoughRowsFound {
		out = append(out, "not enough rows found")
	}
	if f.IncorrectColumnSpacing {
		out = append(out, "incorrect column spacing")
	}
	if f.IncorrectRowSpacing {
		out = append(out, "incorrect row spacing")
	}
	return out
}

// GeometryError is returned by Segment when no valid grid could be found.
// The Segmentation returned alongside it holds whatever boundaries were found.
type GeometryError struct {
	Flags Flags
}

func (e *GeometryError) Error() string {
	return "grid segmentation failed: " + strings.Join(e.Flags.Failures(), ", ")
}
