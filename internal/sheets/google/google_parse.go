package google

import (
	"fmt"
	"strconv"
	"strings"

	"predial/internal/core"
)

// parseValues converts a values matrix (as returned by Sheets API with
// UNFORMATTED_VALUE rendering) into a table. The first row is the header.
func parseValues(sheet string, values [][]interface{}) (*core.Table, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, core.ErrNoHeader)
	}
	header := toStrings(values[0])
	rows := make([][]core.Cell, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make([]core.Cell, len(raw))
		for i, v := range raw {
			row[i] = toCell(v)
		}
		rows = append(rows, row)
	}
	return core.NewTable(sheet, header, rows)
}

// toCell maps a JSON-decoded Sheets value to a cell. Only float64 values
// are native numbers.
func toCell(v interface{}) core.Cell {
	switch x := v.(type) {
	case nil:
		return core.Empty()
	case float64:
		return core.NumberRaw(strconv.FormatFloat(x, 'f', -1, 64), x)
	case bool:
		if x {
			return core.Text("TRUE")
		}
		return core.Text("FALSE")
	case string:
		return core.Text(x)
	default:
		return core.Text(fmt.Sprint(x))
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
