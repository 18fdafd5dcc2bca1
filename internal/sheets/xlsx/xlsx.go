// Package xlsx reads sheets of a local Excel workbook as tables.
package xlsx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"predial/internal/core"
	ports "predial/internal/sheets"
)

// Reader opens the workbook on every call, so a replaced file is picked up
// by the next load. The workbook is never written.
type Reader struct {
	path string
}

var _ ports.Source = (*Reader)(nil)

// NewReader creates a reader for the workbook at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the workbook location.
func (r *Reader) Path() string { return r.path }

// ListSheets returns the sheet names in workbook order.
func (r *Reader) ListSheets(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadTable loads a sheet. The first row is the header; numeric cells keep
// their native-number provenance.
func (r *Reader) ReadTable(ctx context.Context, sheet string) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	defer f.Close()
	return ReadSheet(f, sheet)
}

// ReadSheet converts one sheet of an open workbook into a table.
func ReadSheet(f *excelize.File, sheet string) (*core.Table, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, core.ErrNoHeader)
	}

	data := make([][]core.Cell, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		cells := make([]core.Cell, len(row))
		for colIdx, v := range row {
			cells[colIdx] = toCell(f, sheet, colIdx+1, rowIdx+2, v)
		}
		data = append(data, cells)
	}
	return core.NewTable(sheet, rows[0], data)
}

// toCell decides provenance from the stored cell type. Only values that
// parse as numbers need the type lookup.
func toCell(f *excelize.File, sheet string, col, row int, v string) core.Cell {
	if v == "" {
		return core.Empty()
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return core.Text(v)
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return core.Text(v)
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return core.Text(v)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return core.NumberRaw(v, n)
	default:
		return core.Text(v)
	}
}
