package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"predial/internal/analysis"
	"predial/internal/core"
	"predial/internal/sheets"
	"predial/internal/sheets/memory"
)

func numbers(vals ...float64) []core.Cell {
	out := make([]core.Cell, len(vals))
	for i, v := range vals {
		out[i] = core.Number(v)
	}
	return out
}

func mustTable(t *testing.T, name string, header []string, rows ...[]core.Cell) *core.Table {
	t.Helper()
	tbl, err := core.NewTable(name, header, rows)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func defaultSite(t *testing.T) *Site {
	t.Helper()
	site, err := LoadSite("")
	if err != nil {
		t.Fatalf("LoadSite: %v", err)
	}
	return site
}

func page(t *testing.T, site *Site, slug string) *Page {
	t.Helper()
	p, ok := site.Page(slug)
	if !ok {
		t.Fatalf("page %q not found", slug)
	}
	return p
}

func metric(t *testing.T, rep *Report, key string) Metric {
	t.Helper()
	for _, m := range rep.Metrics {
		if m.Key == key {
			return m
		}
	}
	t.Fatalf("metric %q not in report", key)
	return Metric{}
}

func TestBuilder_UrbanoScenarios(t *testing.T) {
	urbano := mustTable(t, "URBANO",
		[]string{"CODIGO", "LIQ_2025", "DEBIDO COBRAR 2026", "LEY 44 ", "LIMITE LOCAL 50%"},
		append([]core.Cell{core.Text("0100")}, numbers(40000, 60000, 50000, 55000)...),
		append([]core.Cell{core.Text("0101")}, numbers(40000, 40000, 45000, 35000)...),
	)
	b := NewBuilder(memory.New(urbano))

	rep, err := b.Build(context.Background(), page(t, defaultSite(t), "urbano"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ley44 := metric(t, rep, "ley44")
	if ley44.Value.Float != 95000 || ley44.Display != "$95,000" {
		t.Fatalf("ley44 = %+v", ley44)
	}
	if ley44.Delta == nil || ley44.Delta.Absolute != -5000 || ley44.DeltaDisplay != "-5.00%" {
		t.Fatalf("ley44 delta = %+v %q", ley44.Delta, ley44.DeltaDisplay)
	}
	deb26 := metric(t, rep, "deb26")
	if deb26.Delta == nil || deb26.Delta.Percent != 25 {
		t.Fatalf("deb26 delta vs LIQ_2025 = %+v", deb26.Delta)
	}
	if liq := metric(t, rep, "liq25"); liq.Delta != nil {
		t.Fatalf("baseline metric must not carry a delta")
	}

	if len(rep.Charts) != 1 || len(rep.Charts[0].Bars) != 4 {
		t.Fatalf("charts = %+v", rep.Charts)
	}
	bars := rep.Charts[0].Bars
	if bars[1].Label != "Debido 2026 sin límite" || bars[1].Width != 100 || bars[0].Width != 80 {
		t.Fatalf("bars = %+v", bars)
	}
}

func TestBuilder_AbsentColumnsAreNeutral(t *testing.T) {
	resago := mustTable(t, "RESAGO CAMBIO SECTOR", []string{"DEBIDO COBRAR 2026"}, numbers(100))
	b := NewBuilder(memory.New(resago))

	rep, err := b.Build(context.Background(), page(t, defaultSite(t), "resago"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	deb25 := metric(t, rep, "deb25")
	if !deb25.Value.Valid || deb25.Value.Float != 0 {
		t.Fatalf("absent column must sum to 0, got %+v", deb25.Value)
	}
	deb26 := metric(t, rep, "deb26")
	if deb26.Delta == nil || !deb26.Delta.BaselineZero || deb26.Delta.Percent != 0 {
		t.Fatalf("zero baseline delta = %+v", deb26.Delta)
	}
	lim50 := metric(t, rep, "lim50")
	if lim50.Delta.Percent != -100 {
		t.Fatalf("lim50 delta = %+v", lim50.Delta)
	}
}

func TestBuilder_MissingSheet(t *testing.T) {
	b := NewBuilder(memory.New())
	_, err := b.Build(context.Background(), page(t, defaultSite(t), "rural"))

	var pe *PageError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PageError", err)
	}
	if pe.Slug != "rural" || pe.Sheet != "GRUPO1-RURAL" {
		t.Fatalf("page error = %+v", pe)
	}
	if !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatalf("page error must wrap ErrSheetNotFound: %v", err)
	}
}

type panickingSource struct{}

func (panickingSource) ReadTable(context.Context, string) (*core.Table, error) {
	panic("corrupt workbook")
}

func TestBuilder_RecoversPanics(t *testing.T) {
	b := NewBuilder(panickingSource{})
	rep, err := b.Build(context.Background(), page(t, defaultSite(t), "urbano"))
	var pe *PageError
	if rep != nil || !errors.As(err, &pe) || !strings.Contains(err.Error(), "corrupt workbook") {
		t.Fatalf("rep = %v err = %v", rep, err)
	}
}

func TestBuilder_NuevosBreakdown(t *testing.T) {
	nuevos := mustTable(t, "PREDIOS NUEVOS", []string{"NOMBRE_DESTINACION", "AVALUO"},
		[]core.Cell{core.Text("HABITACIONAL"), core.Text("1.000")},
		[]core.Cell{core.Text("LOTE"), core.Text("3.000")},
		[]core.Cell{core.Text("HABITACIONAL"), core.Text("500")},
		[]core.Cell{core.Empty(), core.Text("x")},
	)
	b := NewBuilder(memory.New(nuevos))

	rep, err := b.Build(context.Background(), page(t, defaultSite(t), "nuevos"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m := metric(t, rep, "predios"); m.Display != "4" {
		t.Fatalf("predios = %+v", m)
	}
	if m := metric(t, rep, "avaluo_promedio"); m.Value.Float != 1500 || m.Display != "$1,500" {
		t.Fatalf("avaluo_promedio = %+v", m)
	}

	if len(rep.Breakdowns) != 1 {
		t.Fatalf("breakdowns = %+v", rep.Breakdowns)
	}
	bd := rep.Breakdowns[0]
	if bd.Notice != "" || bd.Summary == nil {
		t.Fatalf("breakdown = %+v", bd)
	}
	labels := []string{}
	for _, r := range bd.Summary.Rows {
		labels = append(labels, r.Label)
	}
	if strings.Join(labels, "|") != "LOTE|HABITACIONAL|"+analysis.MissingGroupLabel {
		t.Fatalf("group order = %v", labels)
	}
	hab := bd.Summary.Rows[1]
	if hab.Values[0].Float != 2 || hab.Values[1].Float != 1500 || hab.Values[2].Float != 750 {
		t.Fatalf("HABITACIONAL = %+v", hab)
	}
	missing := bd.Summary.Rows[2]
	if missing.Values[0].Float != 0 || missing.Values[2].Valid {
		t.Fatalf("group without values = %+v", missing)
	}
	if bd.Chart == nil || len(bd.Chart.Bars) != 3 || bd.Chart.Bars[0].Display != "$3,000" {
		t.Fatalf("chart = %+v", bd.Chart)
	}
	if bd.Concentration == nil || math.Abs(bd.Concentration.TopShare-1) > 1e-9 {
		t.Fatalf("concentration = %+v", bd.Concentration)
	}
}

func TestBuilder_MissingBreakdownColumn(t *testing.T) {
	nuevos := mustTable(t, "PREDIOS NUEVOS", []string{"AVALUO"}, numbers(1))
	b := NewBuilder(memory.New(nuevos))

	rep, err := b.Build(context.Background(), page(t, defaultSite(t), "nuevos"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bd := rep.Breakdowns[0]
	if bd.Summary != nil || bd.Chart != nil {
		t.Fatalf("visualization must be skipped: %+v", bd)
	}
	want := "No se encontraron las columnas NOMBRE_DESTINACION o AVALUO en la hoja PREDIOS NUEVOS."
	if bd.Notice != want || len(rep.Notices) != 1 || rep.Notices[0] != want {
		t.Fatalf("notice = %q, notices = %v", bd.Notice, rep.Notices)
	}
}

func ruralTable(t *testing.T, values ...core.Cell) *core.Table {
	t.Helper()
	groups := []string{"AGRO", "HAB", "AGRO", "HAB", "AGRO"}
	rows := make([][]core.Cell, len(values))
	for i, v := range values {
		rows[i] = []core.Cell{core.Text(groups[i%len(groups)]), v}
	}
	return mustTable(t, "GRUPO1-RURAL", []string{"DEST_ACT", "AVALUO_ACT"}, rows...)
}

func TestBuilder_RuralBrackets(t *testing.T) {
	rural := ruralTable(t, numbers(10, 20, 20, 30, 100)...)
	rep := BuildReport(page(t, defaultSite(t), "rural"), rural)

	if len(rep.Brackets) != 1 {
		t.Fatalf("brackets = %+v", rep.Brackets)
	}
	br := rep.Brackets[0]
	if br.Notice != "" || br.Cross == nil || br.Top == nil || br.Chart == nil {
		t.Fatalf("bracket result = %+v", br)
	}

	var labels []string
	for _, b := range br.Cross.Brackets {
		labels = append(labels, b.Label)
	}
	want := []string{"$10 – $18", "$18 – $20", "$20 – $24", "$24 – $44", "$44 – $100"}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("labels = %v", labels)
	}

	if br.Top.Rows[0].Label != "AGRO" || br.Top.Rows[0].Values[0].Float != 130 {
		t.Fatalf("top = %+v", br.Top.Rows)
	}
	if br.Chart.Bars[0].Width != 100 || br.Chart.Bars[1].Width != 38 {
		t.Fatalf("bars = %+v", br.Chart.Bars)
	}

	count, sum := br.Cross.Total()
	if count != 5 || sum != 180 {
		t.Fatalf("cross total = %d, %v", count, sum)
	}
}

func TestBuilder_RuralBracketNotices(t *testing.T) {
	site := defaultSite(t)
	p := page(t, site, "rural")
	def := p.Brackets[0]

	tests := []struct {
		name  string
		table *core.Table
		want  string
	}{
		{"missing column", mustTable(t, "GRUPO1-RURAL", []string{"DEST_ACT"}, []core.Cell{core.Text("A")}), def.MissingNotice},
		{"no values", ruralTable(t, core.Text("n/a"), core.Empty()), def.EmptyNotice},
		{"one distinct value", ruralTable(t, numbers(7, 7, 7)...), def.DegenerateNotice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := BuildReport(p, tt.table)
			br := rep.Brackets[0]
			if br.Notice != tt.want || br.Cross != nil || br.Chart != nil {
				t.Fatalf("result = %+v, want notice %q", br, tt.want)
			}
		})
	}
}

func TestReport_JSON(t *testing.T) {
	nuevos := mustTable(t, "PREDIOS NUEVOS", []string{"NOMBRE_DESTINACION", "AVALUO"},
		[]core.Cell{core.Text("LOTE"), core.Text("abc")},
	)
	rep := BuildReport(page(t, defaultSite(t), "nuevos"), nuevos)
	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	// The mean of a group without values is undefined, not zero.
	if !strings.Contains(s, `"values":[0,0,null]`) {
		t.Fatalf("json = %s", s)
	}
	if !strings.Contains(s, `"slug":"nuevos"`) {
		t.Fatalf("json = %s", s)
	}
}

func TestFormatMeasure(t *testing.T) {
	count := analysis.Measure{Name: "predios", Agg: analysis.Count}
	sum := analysis.Measure{Name: "total", Agg: analysis.Sum}
	if got := FormatMeasure(count, core.Some(1234)); got != "1,234" {
		t.Errorf("count = %q", got)
	}
	if got := FormatMeasure(sum, core.Some(1234.6)); got != "$1,235" {
		t.Errorf("sum = %q", got)
	}
	if got := FormatMeasure(sum, core.None()); got != "—" {
		t.Errorf("undefined = %q", got)
	}
}
