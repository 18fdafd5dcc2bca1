package dashboard

import (
	"html/template"
	"math"

	"predial/internal/analysis"
	"predial/internal/core"
)

// Funcs returns the template helpers used to render reports.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money":   analysis.FormatMoney,
		"count":   analysis.FormatCount,
		"percent": analysis.FormatPercent,
		"share": func(f float64) string {
			return analysis.FormatPercent(f * 100)
		},
		"measure":    FormatMeasure,
		"deltaClass": deltaClass,
		"band":       bandLabel,
	}
}

func bandLabel(band string) string {
	switch band {
	case analysis.Unconcentrated:
		return "baja concentración"
	case analysis.ModeratelyConcentrated:
		return "concentración moderada"
	case analysis.HighlyConcentrated:
		return "alta concentración"
	}
	return band
}

// FormatMeasure renders a summary value: counts as integers, sums and
// means as money. Undefined values render as a dash.
func FormatMeasure(m analysis.Measure, v core.NullFloat) string {
	if !v.Valid {
		return "—"
	}
	if m.Agg == analysis.Count {
		return analysis.FormatCount(int(math.Round(v.Float)))
	}
	return analysis.FormatMoney(v.Float)
}

func deltaClass(d *analysis.Delta) string {
	if d == nil {
		return ""
	}
	switch d.Direction() {
	case -1:
		return "metric__delta--down"
	case 1:
		return "metric__delta--up"
	default:
		return "metric__delta--flat"
	}
}
