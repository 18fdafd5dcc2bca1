// Package dashboard turns page definitions into reports: metric totals with
// scenario deltas, group breakdowns, value brackets and charts.
package dashboard

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v2"

	"predial/internal/analysis"
)

//go:embed pages.yaml
var defaultPages []byte

// Metric aggregations. Rows counts the sheet's data rows.
const (
	AggSum  = "sum"
	AggMean = "mean"
	AggRows = "rows"
)

// Metric display formats.
const (
	FormatMoney = "money"
	FormatInt   = "int"
)

// Site holds the dashboard title and its pages in navigation order.
type Site struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Pages    []Page `yaml:"pages"`
}

// Page declares what one dashboard page shows for one sheet.
type Page struct {
	Slug          string         `yaml:"slug"`
	Title         string         `yaml:"title"`
	Heading       string         `yaml:"heading"`
	Sheet         string         `yaml:"sheet"`
	Metrics       []MetricDef    `yaml:"metrics"`
	Caption       string         `yaml:"caption"`
	ScenarioChart *ScenarioChart `yaml:"scenario_chart"`
	Breakdowns    []BreakdownDef `yaml:"breakdowns"`
	Brackets      []BracketDef   `yaml:"brackets"`

	captionHTML template.HTML
}

// CaptionHTML returns the caption rendered from Markdown.
func (p *Page) CaptionHTML() template.HTML { return p.captionHTML }

type MetricDef struct {
	Key       string `yaml:"key"`
	Label     string `yaml:"label"`
	Column    string `yaml:"column"`
	Agg       string `yaml:"agg"`
	Format    string `yaml:"format"`
	CompareTo string `yaml:"compare_to"`
}

// ScenarioChart plots page metrics side by side.
type ScenarioChart struct {
	Title  string        `yaml:"title"`
	YLabel string        `yaml:"y_label"`
	Bars   []ScenarioBar `yaml:"bars"`
}

type ScenarioBar struct {
	Label  string `yaml:"label"`
	Metric string `yaml:"metric"`
}

// BreakdownDef declares a group summary table with an optional top-N chart.
type BreakdownDef struct {
	Title         string             `yaml:"title"`
	GroupBy       string             `yaml:"group_by"`
	GroupLabel    string             `yaml:"group_label"`
	Measures      []analysis.Measure `yaml:"measures"`
	SortBy        string             `yaml:"sort_by"`
	Limit         int                `yaml:"limit"`
	Chart         *ChartDef          `yaml:"chart"`
	Concentration *ConcentrationDef  `yaml:"concentration"`
	MissingNotice string             `yaml:"missing_notice"`
}

type ChartDef struct {
	Title   string `yaml:"title"`
	Measure string `yaml:"measure"`
	YLabel  string `yaml:"y_label"`
	Top     int    `yaml:"top"`
}

type ConcentrationDef struct {
	Measure string `yaml:"measure"`
	Top     int    `yaml:"top"`
}

// BracketDef declares a value-bracket analysis: per-group totals of a
// value column, the cross-tabulation of groups against quantile brackets
// of that column and a top-N chart.
type BracketDef struct {
	Title            string    `yaml:"title"`
	GroupBy          string    `yaml:"group_by"`
	GroupLabel       string    `yaml:"group_label"`
	Value            string    `yaml:"value"`
	ValueLabel       string    `yaml:"value_label"`
	Fractions        []float64 `yaml:"fractions"`
	TopTitle         string    `yaml:"top_title"`
	CrossTitle       string    `yaml:"cross_title"`
	ChartTitle       string    `yaml:"chart_title"`
	Top              int       `yaml:"top"`
	MissingNotice    string    `yaml:"missing_notice"`
	EmptyNotice      string    `yaml:"empty_notice"`
	DegenerateNotice string    `yaml:"degenerate_notice"`
}

// LoadSite reads page definitions from path, or the built-in pages when
// path is empty.
func LoadSite(path string) (*Site, error) {
	data := defaultPages
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pages file: %w", err)
		}
	}
	return ParseSite(data)
}

// ParseSite decodes, validates and prepares page definitions.
func ParseSite(data []byte) (*Site, error) {
	var site Site
	if err := yaml.UnmarshalStrict(data, &site); err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}

	md := goldmark.New()
	for i := range site.Pages {
		p := &site.Pages[i]
		if strings.TrimSpace(p.Caption) == "" {
			continue
		}
		var buf bytes.Buffer
		if err := md.Convert([]byte(p.Caption), &buf); err != nil {
			return nil, fmt.Errorf("render caption of page %q: %w", p.Slug, err)
		}
		// goldmark drops raw HTML unless configured otherwise.
		p.captionHTML = template.HTML(buf.String())
	}
	return &site, nil
}

// Page returns the page with the given slug.
func (s *Site) Page(slug string) (*Page, bool) {
	for i := range s.Pages {
		if s.Pages[i].Slug == slug {
			return &s.Pages[i], true
		}
	}
	return nil, false
}

// Sheets lists the distinct sheets the pages read, in page order.
func (s *Site) Sheets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.Pages {
		if !seen[p.Sheet] {
			seen[p.Sheet] = true
			out = append(out, p.Sheet)
		}
	}
	return out
}

// Validate checks every page and reports all problems at once.
func (s *Site) Validate() error {
	var errors []string
	if len(s.Pages) == 0 {
		errors = append(errors, "at least one page is required")
	}

	slugs := make(map[string]bool)
	for i, p := range s.Pages {
		where := fmt.Sprintf("page %d (%s)", i+1, p.Slug)
		if p.Slug == "" {
			errors = append(errors, fmt.Sprintf("page %d: slug is required", i+1))
		} else if slugs[p.Slug] {
			errors = append(errors, fmt.Sprintf("%s: duplicate slug", where))
		}
		slugs[p.Slug] = true
		if strings.TrimSpace(p.Sheet) == "" {
			errors = append(errors, fmt.Sprintf("%s: sheet is required", where))
		}
		errors = append(errors, p.validate(where)...)
	}

	if len(errors) > 0 {
		return fmt.Errorf("pages validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (p *Page) validate(where string) []string {
	var errors []string

	keys := make(map[string]bool)
	for _, m := range p.Metrics {
		if m.Key == "" {
			errors = append(errors, fmt.Sprintf("%s: metric %q has no key", where, m.Label))
			continue
		}
		if keys[m.Key] {
			errors = append(errors, fmt.Sprintf("%s: duplicate metric key %q", where, m.Key))
		}
		keys[m.Key] = true

		switch m.Agg {
		case AggSum, AggMean:
			if strings.TrimSpace(m.Column) == "" {
				errors = append(errors, fmt.Sprintf("%s: metric %q needs a column", where, m.Key))
			}
		case AggRows:
		default:
			errors = append(errors, fmt.Sprintf("%s: metric %q has invalid agg %q: must be one of [sum mean rows]", where, m.Key, m.Agg))
		}
		if m.Format != "" && m.Format != FormatMoney && m.Format != FormatInt {
			errors = append(errors, fmt.Sprintf("%s: metric %q has invalid format %q: must be money or int", where, m.Key, m.Format))
		}
	}
	for _, m := range p.Metrics {
		if m.CompareTo != "" && !keys[m.CompareTo] {
			errors = append(errors, fmt.Sprintf("%s: metric %q compares to unknown metric %q", where, m.Key, m.CompareTo))
		}
	}

	if c := p.ScenarioChart; c != nil {
		if len(c.Bars) == 0 {
			errors = append(errors, fmt.Sprintf("%s: scenario chart has no bars", where))
		}
		for _, b := range c.Bars {
			if !keys[b.Metric] {
				errors = append(errors, fmt.Sprintf("%s: scenario bar %q uses unknown metric %q", where, b.Label, b.Metric))
			}
		}
	}

	for _, b := range p.Breakdowns {
		errors = append(errors, b.validate(where)...)
	}
	for _, b := range p.Brackets {
		if b.GroupBy == "" || b.Value == "" {
			errors = append(errors, fmt.Sprintf("%s: bracket analysis %q needs group_by and value", where, b.Title))
		}
		var hasMin, hasMax bool
		for _, f := range b.Fractions {
			if f < 0 || f > 1 {
				errors = append(errors, fmt.Sprintf("%s: bracket fraction %v outside [0, 1]", where, f))
			}
			hasMin = hasMin || f == 0
			hasMax = hasMax || f == 1
		}
		// Brackets must cover every value, from the minimum to the maximum.
		if len(b.Fractions) > 0 && (!hasMin || !hasMax) {
			errors = append(errors, fmt.Sprintf("%s: bracket analysis %q fractions must include 0 and 1", where, b.Title))
		}
	}
	return errors
}

func (b *BreakdownDef) validate(where string) []string {
	var errors []string
	if b.GroupBy == "" {
		errors = append(errors, fmt.Sprintf("%s: breakdown %q needs group_by", where, b.Title))
	}
	if len(b.Measures) == 0 {
		errors = append(errors, fmt.Sprintf("%s: breakdown %q has no measures", where, b.Title))
	}
	names := make(map[string]bool)
	for _, m := range b.Measures {
		if !m.Agg.Valid() {
			errors = append(errors, fmt.Sprintf("%s: measure %q has invalid agg %q", where, m.Name, m.Agg))
		}
		names[m.Name] = true
	}
	if b.SortBy != "" && !names[b.SortBy] {
		errors = append(errors, fmt.Sprintf("%s: breakdown %q sorts by unknown measure %q", where, b.Title, b.SortBy))
	}
	if b.Chart != nil && !names[b.Chart.Measure] {
		errors = append(errors, fmt.Sprintf("%s: chart of %q uses unknown measure %q", where, b.Title, b.Chart.Measure))
	}
	if b.Concentration != nil && !names[b.Concentration.Measure] {
		errors = append(errors, fmt.Sprintf("%s: concentration of %q uses unknown measure %q", where, b.Title, b.Concentration.Measure))
	}
	return errors
}
