package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"

	"predial/internal/analysis"
	"predial/internal/core"
	"predial/internal/sheets"
)

// defaultChartTop is the number of bars of a top-N chart.
const defaultChartTop = 10

// Report is everything one page shows, computed from a single sheet read.
type Report struct {
	Slug       string            `json:"slug"`
	Title      string            `json:"title"`
	Heading    string            `json:"heading"`
	Sheet      string            `json:"sheet"`
	Rows       int               `json:"rows"`
	Metrics    []Metric          `json:"metrics"`
	Caption    template.HTML     `json:"caption_html,omitempty"`
	Charts     []Chart           `json:"charts,omitempty"`
	Breakdowns []BreakdownResult `json:"breakdowns,omitempty"`
	Brackets   []BracketResult   `json:"brackets,omitempty"`
	Notices    []string          `json:"notices,omitempty"`
}

type Metric struct {
	Key          string          `json:"key"`
	Label        string          `json:"label"`
	Value        core.NullFloat  `json:"value"`
	Display      string          `json:"display"`
	CompareTo    string          `json:"compare_to,omitempty"`
	Delta        *analysis.Delta `json:"delta,omitempty"`
	DeltaDisplay string          `json:"delta_display,omitempty"`
}

// Chart is a bar chart. Width is each bar's length in percent of the
// largest absolute value.
type Chart struct {
	Title  string `json:"title"`
	XLabel string `json:"x_label,omitempty"`
	YLabel string `json:"y_label,omitempty"`
	Bars   []Bar  `json:"bars"`
}

type Bar struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Width   int     `json:"width"`
}

type BreakdownResult struct {
	Title         string                  `json:"title"`
	GroupLabel    string                  `json:"group_label,omitempty"`
	Summary       *analysis.Summary       `json:"summary,omitempty"`
	Chart         *Chart                  `json:"chart,omitempty"`
	Concentration *analysis.Concentration `json:"concentration,omitempty"`
	Notice        string                  `json:"notice,omitempty"`
}

type BracketResult struct {
	Title      string               `json:"title"`
	GroupLabel string               `json:"group_label,omitempty"`
	ValueLabel string               `json:"value_label,omitempty"`
	TopTitle   string               `json:"top_title,omitempty"`
	Top        *analysis.Summary    `json:"top,omitempty"`
	CrossTitle string               `json:"cross_title,omitempty"`
	Cross      *analysis.CrossTable `json:"cross,omitempty"`
	Chart      *Chart               `json:"chart,omitempty"`
	Notice     string               `json:"notice,omitempty"`
}

// PageError is a failure that prevents a page from rendering. It never
// affects other pages.
type PageError struct {
	Slug  string
	Sheet string
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %q (sheet %q): %v", e.Slug, e.Sheet, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Builder computes page reports from a sheet reader.
type Builder struct {
	src sheets.TableReader
}

func NewBuilder(src sheets.TableReader) *Builder {
	return &Builder{src: src}
}

// Build reads the page's sheet and computes its report. Load failures and
// panics come back as *PageError.
func (b *Builder) Build(ctx context.Context, page *Page) (rep *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Panic while building page", "page", page.Slug, "panic", r)
			rep = nil
			err = &PageError{Slug: page.Slug, Sheet: page.Sheet, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	t, err := b.src.ReadTable(ctx, page.Sheet)
	if err != nil {
		return nil, &PageError{Slug: page.Slug, Sheet: page.Sheet, Err: err}
	}
	return BuildReport(page, t), nil
}

// BuildReport computes a page report from an already loaded table.
func BuildReport(page *Page, t *core.Table) *Report {
	rep := &Report{
		Slug:    page.Slug,
		Title:   page.Title,
		Heading: page.Heading,
		Sheet:   page.Sheet,
		Rows:    t.Len(),
		Caption: page.CaptionHTML(),
	}

	values := make(map[string]core.NullFloat, len(page.Metrics))
	for _, def := range page.Metrics {
		v := metricValue(t, def)
		values[def.Key] = v
		rep.Metrics = append(rep.Metrics, Metric{
			Key:       def.Key,
			Label:     def.Label,
			Value:     v,
			Display:   formatMetric(def.Format, v),
			CompareTo: def.CompareTo,
		})
	}
	for i := range rep.Metrics {
		m := &rep.Metrics[i]
		if m.CompareTo == "" {
			continue
		}
		d := analysis.Compare(values[m.CompareTo].OrZero(), m.Value.OrZero())
		m.Delta = &d
		m.DeltaDisplay = analysis.FormatPercent(d.Percent)
	}

	if c := page.ScenarioChart; c != nil {
		labels := make([]string, len(c.Bars))
		vals := make([]float64, len(c.Bars))
		for i, bar := range c.Bars {
			labels[i] = bar.Label
			vals[i] = values[bar.Metric].OrZero()
		}
		rep.Charts = append(rep.Charts, newChart(c.Title, "", c.YLabel, labels, vals))
	}

	for _, def := range page.Breakdowns {
		res := buildBreakdown(t, def)
		if res.Notice != "" {
			rep.Notices = append(rep.Notices, res.Notice)
		}
		rep.Breakdowns = append(rep.Breakdowns, res)
	}
	for _, def := range page.Brackets {
		res := buildBrackets(t, def)
		if res.Notice != "" {
			rep.Notices = append(rep.Notices, res.Notice)
		}
		rep.Brackets = append(rep.Brackets, res)
	}
	return rep
}

func metricValue(t *core.Table, def MetricDef) core.NullFloat {
	switch def.Agg {
	case AggRows:
		return core.Some(float64(t.Len()))
	case AggMean:
		if mean, ok := analysis.SafeMean(t, def.Column); ok {
			return core.Some(mean)
		}
		return core.None()
	default:
		return core.Some(analysis.SafeSum(t, def.Column))
	}
}

func formatMetric(format string, v core.NullFloat) string {
	if format == FormatInt {
		if !v.Valid {
			return "—"
		}
		return analysis.FormatCount(int(math.Round(v.Float)))
	}
	if !v.Valid {
		return analysis.FormatMoney(math.NaN())
	}
	return analysis.FormatMoney(v.Float)
}

func buildBreakdown(t *core.Table, def BreakdownDef) BreakdownResult {
	res := BreakdownResult{Title: def.Title, GroupLabel: def.GroupLabel}

	summary, err := analysis.Breakdown(t, analysis.Spec{
		GroupBy:  def.GroupBy,
		Measures: def.Measures,
		SortBy:   def.SortBy,
		Limit:    def.Limit,
	})
	if err != nil {
		res.Notice = noticeFor(err, def.MissingNotice)
		return res
	}
	res.Summary = summary

	if c := def.Chart; c != nil {
		res.Chart = summaryChart(summary, c.Measure, c.Top, c.Title, def.GroupLabel, c.YLabel)
	}
	if c := def.Concentration; c != nil {
		conc, err := analysis.Concentrate(summary, c.Measure, c.Top)
		if err != nil && !errors.Is(err, analysis.ErrZeroTotal) {
			slog.Warn("Concentration skipped", "sheet", t.Name(), "measure", c.Measure, "error", err)
		}
		res.Concentration = conc
	}
	return res
}

func buildBrackets(t *core.Table, def BracketDef) BracketResult {
	res := BracketResult{
		Title:      def.Title,
		GroupLabel: def.GroupLabel,
		ValueLabel: def.ValueLabel,
		TopTitle:   def.TopTitle,
		CrossTitle: def.CrossTitle,
	}

	if !t.Has(def.GroupBy) || !t.Has(def.Value) {
		res.Notice = orDefault(def.MissingNotice,
			fmt.Sprintf("columns %s or %s not found in sheet %s", def.Value, def.GroupBy, t.Name()))
		return res
	}
	if analysis.SafeCount(t, def.Value) == 0 {
		res.Notice = orDefault(def.EmptyNotice, fmt.Sprintf("no %s values to analyse", def.Value))
		return res
	}

	fractions := def.Fractions
	if len(fractions) == 0 {
		fractions = analysis.DefaultFractions
	}
	brackets, err := analysis.BracketsFor(t, def.Value, fractions)
	if err != nil {
		res.Notice = noticeFor(err, def.DegenerateNotice)
		return res
	}

	summary, err := analysis.Breakdown(t, analysis.Spec{
		GroupBy:  def.GroupBy,
		Measures: []analysis.Measure{{Name: def.Value, Column: def.Value, Agg: analysis.Sum}},
		SortBy:   def.Value,
	})
	if err != nil {
		res.Notice = noticeFor(err, def.MissingNotice)
		return res
	}
	top := def.Top
	if top <= 0 {
		top = defaultChartTop
	}
	res.Top = summary.Top(top)

	cross, err := analysis.CrossTabulate(t, def.GroupBy, def.Value, brackets)
	if err != nil {
		res.Notice = noticeFor(err, def.DegenerateNotice)
		return res
	}
	res.Cross = cross
	res.Chart = summaryChart(summary, def.Value, top, def.ChartTitle, def.GroupLabel, def.ValueLabel)
	return res
}

// noticeFor turns an informational analysis error into a page notice,
// preferring the configured wording.
func noticeFor(err error, configured string) string {
	var missing *analysis.MissingColumnError
	if errors.As(err, &missing) || errors.Is(err, analysis.ErrDegenerateBrackets) {
		return orDefault(configured, err.Error())
	}
	slog.Warn("Page analysis failed", "error", err)
	return err.Error()
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func summaryChart(s *analysis.Summary, measure string, top int, title, xLabel, yLabel string) *Chart {
	if top <= 0 {
		top = defaultChartTop
	}
	s = s.Top(top)
	col, ok := s.Column(measure)
	if !ok {
		return nil
	}
	labels := make([]string, len(s.Rows))
	vals := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		labels[i] = r.Label
		vals[i] = col[i].OrZero()
	}
	c := newChart(title, xLabel, yLabel, labels, vals)
	return &c
}

func newChart(title, xLabel, yLabel string, labels []string, values []float64) Chart {
	var peak float64
	for _, v := range values {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	c := Chart{Title: title, XLabel: xLabel, YLabel: yLabel}
	for i, v := range values {
		c.Bars = append(c.Bars, Bar{
			Label:   labels[i],
			Value:   v,
			Display: analysis.FormatMoney(v),
			Width:   barWidth(v, peak),
		})
	}
	return c
}

// barWidth returns the rounded percent of v against peak, keeping small
// non-zero bars visible.
func barWidth(v, peak float64) int {
	v = math.Abs(v)
	if peak <= 0 || v == 0 {
		return 0
	}
	w := int(math.Round(v / peak * 100))
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}
