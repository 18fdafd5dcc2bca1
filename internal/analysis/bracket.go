package analysis

import (
	"errors"
	"math"
	"sort"
)

// DefaultFractions are the quintile cut points used by the valuation
// bracket analysis.
var DefaultFractions = []float64{0, 0.2, 0.4, 0.6, 0.8, 1}

// ErrDegenerateBrackets is returned when the values do not yield at least
// two distinct boundaries.
var ErrDegenerateBrackets = errors.New("not enough distinct values to form brackets")

// Bracket is one value interval. The first bracket is closed on both ends,
// the others are open on the lower end.
type Bracket struct {
	Index int     `json:"index"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Label string  `json:"label"`
}

// Brackets partitions [min, max] of a value distribution.
type Brackets struct {
	bounds []float64
	items  []Bracket
}

// NewBrackets computes quantile boundaries of values at the given fractions
// and drops duplicated boundaries. Non-finite values are ignored.
func NewBrackets(values []float64, fractions []float64) (*Brackets, error) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, ErrDegenerateBrackets
	}
	sort.Float64s(clean)

	qs := make([]float64, 0, len(fractions))
	for _, f := range fractions {
		qs = append(qs, quantile(clean, f))
	}
	sort.Float64s(qs)

	bounds := qs[:0]
	for i, q := range qs {
		if i > 0 && q == bounds[len(bounds)-1] {
			continue
		}
		bounds = append(bounds, q)
	}
	if len(bounds) < 2 {
		return nil, ErrDegenerateBrackets
	}

	b := &Brackets{bounds: bounds}
	for i := 0; i < len(bounds)-1; i++ {
		b.items = append(b.items, Bracket{
			Index: i,
			Lower: bounds[i],
			Upper: bounds[i+1],
			Label: FormatMoney(bounds[i]) + " – " + FormatMoney(bounds[i+1]),
		})
	}
	return b, nil
}

// quantile interpolates linearly between the two closest ranks of sorted,
// the same way numpy's default method does.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi > n-1 {
		hi = n - 1
	}
	t := h - float64(lo)
	a, b := sorted[lo], sorted[hi]
	if t >= 0.5 {
		return b - (b-a)*(1-t)
	}
	return a + (b-a)*t
}

// Bounds returns a copy of the distinct boundaries in ascending order.
func (b *Brackets) Bounds() []float64 {
	return append([]float64(nil), b.bounds...)
}

// Items returns the brackets in ascending order.
func (b *Brackets) Items() []Bracket {
	return append([]Bracket(nil), b.items...)
}

// Len returns the number of brackets.
func (b *Brackets) Len() int {
	return len(b.items)
}

// Assign returns the index of the bracket holding v. ok is false when v
// falls outside [min, max] or is not a number.
func (b *Brackets) Assign(v float64) (index int, ok bool) {
	if math.IsNaN(v) || v < b.bounds[0] || v > b.bounds[len(b.bounds)-1] {
		return 0, false
	}
	i := sort.SearchFloat64s(b.bounds, v)
	if i == 0 {
		return 0, true
	}
	return i - 1, true
}
