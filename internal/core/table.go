// Package core holds the tabular model shared by every reader and analysis.
//
// A Table is built once from a sheet's header row and data rows and is
// read-only afterwards. Cells keep their raw source text together with the
// kind the source reported, so numeric coercion can tell native numbers
// apart from locale-formatted text.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CellKind reports how the source stored a cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	default:
		return "unknown"
	}
}

type (
	// Cell is a single source value. Raw is the text as read from the
	// source; Number is only meaningful when Kind is CellNumber.
	Cell struct {
		Kind   CellKind
		Raw    string
		Number float64
	}

	// Column is a named, row-aligned slice of cells.
	Column struct {
		Name  string
		Cells []Cell
	}

	// Table is an ordered set of uniquely named columns of equal length.
	Table struct {
		name    string
		columns []Column
		index   map[string]int
		rows    int
	}
)

var ErrNoHeader = errors.New("sheet has no header row")

// Empty returns an empty cell.
func Empty() Cell { return Cell{Kind: CellEmpty} }

// Text returns a text cell. Blank text is stored as an empty cell.
func Text(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Empty()
	}
	return Cell{Kind: CellText, Raw: s}
}

// Number returns a native numeric cell.
func Number(f float64) Cell {
	return Cell{Kind: CellNumber, Raw: strconv.FormatFloat(f, 'f', -1, 64), Number: f}
}

// NumberRaw returns a native numeric cell keeping the source's raw text.
func NumberRaw(raw string, f float64) Cell {
	return Cell{Kind: CellNumber, Raw: raw, Number: f}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String returns the raw text of the cell.
func (c Cell) String() string { return c.Raw }

// IsNumeric reports whether every non-empty cell of the column is a native
// number. A column with no values at all also counts as numeric.
func (c Column) IsNumeric() bool {
	for _, cell := range c.Cells {
		if cell.Kind == CellText {
			return false
		}
	}
	return true
}

// NewTable builds a table from a header row and data rows. Header names are
// trimmed; blank headers become "Unnamed: <i>" and repeated names get a
// ".1", ".2", ... suffix. Short rows are padded with empty cells and cells
// beyond the header width are dropped.
func NewTable(name string, header []string, rows [][]Cell) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, ErrNoHeader)
	}

	names := normalizeHeader(header)
	t := &Table{
		name:    name,
		columns: make([]Column, len(names)),
		index:   make(map[string]int, len(names)),
		rows:    len(rows),
	}
	for i, n := range names {
		t.columns[i] = Column{Name: n, Cells: make([]Cell, len(rows))}
		t.index[n] = i
	}
	for r, row := range rows {
		for c := range t.columns {
			if c < len(row) {
				t.columns[c].Cells[r] = row[c]
			} else {
				t.columns[c].Cells[r] = Empty()
			}
		}
	}
	return t, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = "Unnamed: " + strconv.Itoa(i)
		}
		base := n
		for {
			if _, dup := seen[n]; !dup {
				break
			}
			suffix[base]++
			n = base + "." + strconv.Itoa(suffix[base])
		}
		seen[n] = struct{}{}
		out[i] = n
	}
	return out
}

// Name returns the sheet identifier the table was loaded from.
func (t *Table) Name() string { return t.name }

// Len returns the number of data rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in source order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column exists. The name is trimmed before lookup.
func (t *Table) Has(name string) bool {
	_, ok := t.index[strings.TrimSpace(name)]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[strings.TrimSpace(name)]
	if !ok {
		return Column{}, false
	}
	src := t.columns[i]
	cells := make([]Cell, len(src.Cells))
	copy(cells, src.Cells)
	return Column{Name: src.Name, Cells: cells}, true
}

// Rows returns the table as a header plus data rows, in source order.
func (t *Table) Rows() (header []string, rows [][]Cell) {
	header = t.Columns()
	rows = make([][]Cell, t.rows)
	for r := 0; r < t.rows; r++ {
		row := make([]Cell, len(t.columns))
		for c := range t.columns {
			row[c] = t.columns[c].Cells[r]
		}
		rows[r] = row
	}
	return header, rows
}
