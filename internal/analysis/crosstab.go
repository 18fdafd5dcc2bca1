package analysis

import (
	"sort"
	"strings"

	"predial/internal/core"
)

// CrossCell aggregates the rows sharing a group label and a bracket.
type CrossCell struct {
	Group   string  `json:"group"`
	Bracket int     `json:"bracket"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Sum     float64 `json:"sum"`
}

// CrossTable is a sparse group-by-bracket table. Only observed cells are
// present.
type CrossTable struct {
	GroupBy  string      `json:"group_by"`
	Value    string      `json:"value"`
	Brackets []Bracket   `json:"brackets"`
	Cells    []CrossCell `json:"cells"`
}

// BracketsFor computes brackets over the valid values of a column.
func BracketsFor(t *core.Table, column string, fractions []float64) (*Brackets, error) {
	n, err := numericColumn(t, column)
	if err != nil {
		return nil, err
	}
	return NewBrackets(n.Values(), fractions)
}

// CrossTabulate counts and sums valueColumn per group label and bracket.
// Rows whose value is missing are left out. Cells are ordered by group
// label, then bracket.
func CrossTabulate(t *core.Table, groupColumn, valueColumn string, b *Brackets) (*CrossTable, error) {
	if b == nil || b.Len() == 0 {
		return nil, ErrDegenerateBrackets
	}
	labels, err := groupLabels(t, groupColumn)
	if err != nil {
		return nil, err
	}
	values, err := numericColumn(t, valueColumn)
	if err != nil {
		return nil, err
	}

	type key struct {
		group   string
		bracket int
	}
	cells := make(map[key]*CrossCell)
	items := b.Items()
	for row, v := range values {
		if !v.Valid {
			continue
		}
		idx, ok := b.Assign(v.Float)
		if !ok {
			continue
		}
		k := key{labels[row], idx}
		c, found := cells[k]
		if !found {
			c = &CrossCell{Group: k.group, Bracket: idx, Label: items[idx].Label}
			cells[k] = c
		}
		c.Count++
		c.Sum += v.Float
	}

	out := &CrossTable{
		GroupBy:  strings.TrimSpace(groupColumn),
		Value:    strings.TrimSpace(valueColumn),
		Brackets: items,
		Cells:    make([]CrossCell, 0, len(cells)),
	}
	for _, c := range cells {
		out.Cells = append(out.Cells, *c)
	}
	sort.Slice(out.Cells, func(i, j int) bool {
		if out.Cells[i].Group != out.Cells[j].Group {
			return labelLess(out.Cells[i].Group, out.Cells[j].Group)
		}
		return out.Cells[i].Bracket < out.Cells[j].Bracket
	})
	return out, nil
}

// Total returns the count and sum over every cell.
func (c *CrossTable) Total() (count int, sum float64) {
	for _, cell := range c.Cells {
		count += cell.Count
		sum += cell.Sum
	}
	return count, sum
}
