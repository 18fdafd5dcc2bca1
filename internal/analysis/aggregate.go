// Package analysis computes the dashboard's aggregates over core tables:
// missing-safe sums, scenario deltas, group summaries, quantile brackets
// and category-by-bracket cross tabulations.
package analysis

import (
	"fmt"

	"predial/internal/core"
)

// Aggregate names a reduction over a numeric column.
type Aggregate string

const (
	Sum   Aggregate = "sum"
	Mean  Aggregate = "mean"
	Count Aggregate = "count"
)

// Valid reports whether the aggregate is known.
func (a Aggregate) Valid() bool {
	switch a {
	case Sum, Mean, Count:
		return true
	}
	return false
}

// Apply reduces a numeric column. Sum treats missing values as zero, mean
// and count skip them. The mean of a column without valid values is
// reported as missing.
func (a Aggregate) Apply(n core.NumericColumn) core.NullFloat {
	switch a {
	case Sum:
		return core.Some(SumOf(n))
	case Count:
		return core.Some(float64(CountOf(n)))
	case Mean:
		return MeanOf(n)
	default:
		return core.None()
	}
}

// SumOf adds every valid value; missing values contribute zero.
func SumOf(n core.NumericColumn) float64 {
	var total float64
	for _, v := range n {
		total += v.OrZero()
	}
	return total
}

// CountOf returns the number of valid values.
func CountOf(n core.NumericColumn) int {
	c := 0
	for _, v := range n {
		if v.Valid {
			c++
		}
	}
	return c
}

// MeanOf averages the valid values.
func MeanOf(n core.NumericColumn) core.NullFloat {
	c := CountOf(n)
	if c == 0 {
		return core.None()
	}
	return core.Some(SumOf(n) / float64(c))
}

// SafeSum sums a column after numeric coercion. An absent column yields 0.
func SafeSum(t *core.Table, column string) float64 {
	col, ok := t.Column(column)
	if !ok {
		return 0
	}
	return SumOf(core.ToNumeric(col))
}

// SafeMean averages a column after numeric coercion. ok is false when the
// column is absent or holds no valid values.
func SafeMean(t *core.Table, column string) (mean float64, ok bool) {
	col, found := t.Column(column)
	if !found {
		return 0, false
	}
	m := MeanOf(core.ToNumeric(col))
	return m.Float, m.Valid
}

// SafeCount counts the valid values of a column. An absent column yields 0.
func SafeCount(t *core.Table, column string) int {
	col, ok := t.Column(column)
	if !ok {
		return 0
	}
	return CountOf(core.ToNumeric(col))
}

// MissingColumnError reports that a table lacks a column an analysis needs.
// Pages treat it as informational.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in sheet %q", e.Column, e.Table)
}

func numericColumn(t *core.Table, column string) (core.NumericColumn, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, &MissingColumnError{Table: t.Name(), Column: column}
	}
	return core.ToNumeric(col), nil
}
