package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type (
	// NullFloat is a float that may be missing.
	NullFloat struct {
		Float float64
		Valid bool
	}

	// NumericColumn is the coerced form of a column, row-aligned with it.
	NumericColumn []NullFloat
)

// Some returns a valid NullFloat.
func Some(f float64) NullFloat { return NullFloat{Float: f, Valid: true} }

// None returns a missing NullFloat.
func None() NullFloat { return NullFloat{} }

// OrZero returns the value, or 0 when missing.
func (n NullFloat) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Float
}

// MarshalJSON encodes a missing value as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float)
}

// ToNumeric coerces a column into optional floats.
//
// Columns made only of native numbers keep their values. Any other column is
// treated as text in the source locale: spaces and "." thousands separators
// are removed and "," becomes the decimal point. Text that already uses "."
// as a decimal point is therefore read as a larger number ("1.5" -> 15);
// callers that need the value preserved must store it as a native number.
func ToNumeric(col Column) NumericColumn {
	out := make(NumericColumn, len(col.Cells))
	if col.IsNumeric() {
		for i, cell := range col.Cells {
			if cell.Kind == CellNumber && isFinite(cell.Number) {
				out[i] = Some(cell.Number)
			}
		}
		return out
	}
	for i, cell := range col.Cells {
		if cell.Kind == CellEmpty {
			continue
		}
		if f, ok := ParseLocaleNumber(cell.Raw); ok {
			out[i] = Some(f)
		}
	}
	return out
}

// ParseLocaleNumber parses text written with "." as thousands separator and
// "," as decimal separator, e.g. "1.234.567,89" or "0,5".
func ParseLocaleNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || hasBasePrefix(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// hasBasePrefix rejects hexadecimal and other prefixed forms ParseFloat accepts.
func hasBasePrefix(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if len(s) < 2 || s[0] != '0' {
		return false
	}
	switch s[1] {
	case 'x', 'X', 'b', 'B', 'o', 'O':
		return true
	}
	return false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Values returns the valid values in row order.
func (n NumericColumn) Values() []float64 {
	out := make([]float64, 0, len(n))
	for _, v := range n {
		if v.Valid {
			out = append(out, v.Float)
		}
	}
	return out
}

// Column converts the numeric column back into a native-number column, so
// coercing it again yields the same values.
func (n NumericColumn) Column(name string) Column {
	cells := make([]Cell, len(n))
	for i, v := range n {
		if v.Valid {
			cells[i] = Number(v.Float)
		} else {
			cells[i] = Empty()
		}
	}
	return Column{Name: name, Cells: cells}
}
