package google

import (
	"errors"
	"testing"

	"predial/internal/analysis"
	"predial/internal/core"
)

// Build a small matrix emulating an UNFORMATTED_VALUE response for URBANO
func TestParseValues_Urbano(t *testing.T) {
	values := [][]interface{}{
		{"CODIGO", "LIQ_2025", "DEBIDO COBRAR 2026", "LEY 44 ", "DEST_ACT"},
		{"0100", 1000.0, 1200.0, 1100.0, "HABITACIONAL"},
		{"0101", 500.5, "", 520.0, "COMERCIAL"},
		{"0102", 2500.0, 3000.0},
	}
	tbl, err := parseValues("URBANO", values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if tbl.Name() != "URBANO" || tbl.Len() != 3 {
		t.Fatalf("unexpected table: %s rows=%d", tbl.Name(), tbl.Len())
	}

	liq, _ := tbl.Column("LIQ_2025")
	if !liq.IsNumeric() {
		t.Fatalf("LIQ_2025 should keep native-number provenance")
	}
	if got := analysis.SafeSum(tbl, "LIQ_2025"); got != 4000.5 {
		t.Fatalf("LIQ_2025 total = %v", got)
	}
	// Empty strings are blank cells, so the column stays numeric.
	if got := analysis.SafeSum(tbl, "DEBIDO COBRAR 2026"); got != 4200 {
		t.Fatalf("DEBIDO COBRAR 2026 total = %v", got)
	}
	if got := analysis.SafeSum(tbl, "LEY 44"); got != 1620 {
		t.Fatalf("LEY 44 total = %v", got)
	}

	code, _ := tbl.Column("CODIGO")
	if code.IsNumeric() || code.Cells[0].String() != "0100" {
		t.Fatalf("CODIGO should stay text: %+v", code.Cells)
	}
	dest, _ := tbl.Column("DEST_ACT")
	if !dest.Cells[2].IsEmpty() {
		t.Fatalf("short rows should be padded")
	}
}

func TestParseValues_Empty(t *testing.T) {
	if _, err := parseValues("X", nil); !errors.Is(err, core.ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestToCell(t *testing.T) {
	tests := []struct {
		in   interface{}
		kind core.CellKind
		raw  string
	}{
		{nil, core.CellEmpty, ""},
		{12.5, core.CellNumber, "12.5"},
		{1e6, core.CellNumber, "1000000"},
		{true, core.CellText, "TRUE"},
		{"1.234,5", core.CellText, "1.234,5"},
		{"   ", core.CellEmpty, ""},
	}
	for _, tt := range tests {
		c := toCell(tt.in)
		if c.Kind != tt.kind || c.Raw != tt.raw {
			t.Fatalf("toCell(%v) = %+v, want kind %s raw %q", tt.in, c, tt.kind, tt.raw)
		}
	}
}
