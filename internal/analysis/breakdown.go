package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"predial/internal/core"
)

// MissingGroupLabel holds rows whose grouping cell is blank.
const MissingGroupLabel = "(sin dato)"

// Measure is one aggregated column of a group summary.
type Measure struct {
	Name   string    `json:"name" yaml:"name"`
	Column string    `json:"column" yaml:"column"`
	Agg    Aggregate `json:"agg" yaml:"agg"`
}

// Spec describes a group summary.
type Spec struct {
	GroupBy  string
	Measures []Measure
	// SortBy names the measure rows are ordered by, descending. Empty keeps
	// label order.
	SortBy string
	// Limit keeps only the first rows after sorting; 0 keeps all.
	Limit int
}

// GroupRow is one group of a summary. Values are aligned with the
// summary's measures.
type GroupRow struct {
	Label  string           `json:"label"`
	Rows   int              `json:"rows"`
	Values []core.NullFloat `json:"values"`
}

// Summary is the result of a breakdown.
type Summary struct {
	GroupBy  string     `json:"group_by"`
	Measures []Measure  `json:"measures"`
	Rows     []GroupRow `json:"rows"`
}

// Breakdown groups the rows of t by a label column and aggregates the
// requested measures per group.
func Breakdown(t *core.Table, spec Spec) (*Summary, error) {
	labels, err := groupLabels(t, spec.GroupBy)
	if err != nil {
		return nil, err
	}
	if len(spec.Measures) == 0 {
		return nil, fmt.Errorf("breakdown of %q has no measures", spec.GroupBy)
	}

	sortIdx := -1
	columns := make([]core.NumericColumn, len(spec.Measures))
	for i, m := range spec.Measures {
		if !m.Agg.Valid() {
			return nil, fmt.Errorf("measure %q: unknown aggregate %q", m.Name, m.Agg)
		}
		n, err := numericColumn(t, m.Column)
		if err != nil {
			return nil, err
		}
		columns[i] = n
		if m.Name == spec.SortBy {
			sortIdx = i
		}
	}
	if spec.SortBy != "" && sortIdx < 0 {
		return nil, fmt.Errorf("sort measure %q is not part of the breakdown", spec.SortBy)
	}

	members := make(map[string][]int)
	for row, label := range labels {
		members[label] = append(members[label], row)
	}
	order := make([]string, 0, len(members))
	for label := range members {
		order = append(order, label)
	}
	sort.Slice(order, func(i, j int) bool { return labelLess(order[i], order[j]) })

	out := &Summary{
		GroupBy:  strings.TrimSpace(spec.GroupBy),
		Measures: append([]Measure(nil), spec.Measures...),
		Rows:     make([]GroupRow, 0, len(order)),
	}
	for _, label := range order {
		rows := members[label]
		gr := GroupRow{Label: label, Rows: len(rows), Values: make([]core.NullFloat, len(spec.Measures))}
		for i, m := range spec.Measures {
			sub := make(core.NumericColumn, len(rows))
			for j, r := range rows {
				sub[j] = columns[i][r]
			}
			gr.Values[i] = m.Agg.Apply(sub)
		}
		out.Rows = append(out.Rows, gr)
	}

	if sortIdx >= 0 {
		sort.SliceStable(out.Rows, func(a, b int) bool {
			va, vb := out.Rows[a].Values[sortIdx], out.Rows[b].Values[sortIdx]
			if !va.Valid || !vb.Valid {
				return va.Valid && !vb.Valid
			}
			return va.Float > vb.Float
		})
	}
	if spec.Limit > 0 && len(out.Rows) > spec.Limit {
		out.Rows = out.Rows[:spec.Limit]
	}
	return out, nil
}

// labelLess orders group labels numerically when both parse as finite
// numbers, numbers before text, and text lexically.
func labelLess(a, b string) bool {
	fa, aNum := numericLabel(a)
	fb, bNum := numericLabel(b)
	switch {
	case aNum && bNum && fa != fb:
		return fa < fb
	case aNum != bNum:
		return aNum
	}
	return a < b
}

func numericLabel(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// groupLabels returns the trimmed label of every row, mapping blanks to
// MissingGroupLabel.
func groupLabels(t *core.Table, column string) ([]string, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, &MissingColumnError{Table: t.Name(), Column: column}
	}
	labels := make([]string, len(col.Cells))
	for i, c := range col.Cells {
		l := strings.TrimSpace(c.String())
		if c.IsEmpty() || l == "" {
			l = MissingGroupLabel
		}
		labels[i] = l
	}
	return labels, nil
}

// Top returns a summary holding at most the first n rows.
func (s *Summary) Top(n int) *Summary {
	out := *s
	if n >= 0 && n < len(s.Rows) {
		out.Rows = s.Rows[:n]
	}
	return &out
}

// MeasureIndex returns the position of the named measure, or -1.
func (s *Summary) MeasureIndex(name string) int {
	for i, m := range s.Measures {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the values of one measure across the summary rows.
func (s *Summary) Column(name string) (core.NumericColumn, bool) {
	i := s.MeasureIndex(name)
	if i < 0 {
		return nil, false
	}
	out := make(core.NumericColumn, len(s.Rows))
	for j, r := range s.Rows {
		out[j] = r.Values[i]
	}
	return out, true
}
