package analysis

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatMoney renders an amount rounded to whole pesos with thousands
// separators, e.g. "$1,234,568".
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "$—"
	}
	r := math.Round(v)
	if r == 0 {
		r = 0 // drops the sign of -0
	}
	return "$" + humanize.Commaf(r)
}

// FormatCount renders an integer count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatPercent renders a percentage with two decimals, e.g. "-5.00%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
