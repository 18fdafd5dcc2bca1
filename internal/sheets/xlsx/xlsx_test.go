package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"predial/internal/analysis"
	"predial/internal/core"
	"predial/internal/sheets"
)

// writeWorkbook creates a two-sheet workbook resembling the assessment file.
func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "URBANO"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	set := func(sheet, cell string, v interface{}) {
		t.Helper()
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("set %s!%s: %v", sheet, cell, err)
		}
	}
	set("URBANO", "A1", "LIQ_2025")
	set("URBANO", "B1", "LEY 44 ")
	set("URBANO", "C1", "AVALUO_TXT")
	set("URBANO", "A2", 1000)
	set("URBANO", "B2", 1100.5)
	set("URBANO", "C2", "1.234,5")
	set("URBANO", "A3", 2000.25)
	set("URBANO", "C3", "1.5")

	if _, err := f.NewSheet("PREDIOS NUEVOS"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	set("PREDIOS NUEVOS", "A1", "NOMBRE_DESTINACION")
	set("PREDIOS NUEVOS", "B1", "AVALUO")
	set("PREDIOS NUEVOS", "A2", "LOTE")
	set("PREDIOS NUEVOS", "B2", 500)

	if _, err := f.NewSheet("VACIA"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}

	path := filepath.Join(t.TempDir(), "predial.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestReader_ListSheets(t *testing.T) {
	r := NewReader(writeWorkbook(t))
	names, err := r.ListSheets(context.Background())
	if err != nil {
		t.Fatalf("ListSheets: %v", err)
	}
	if len(names) != 3 || names[0] != "URBANO" || names[1] != "PREDIOS NUEVOS" {
		t.Fatalf("names = %v", names)
	}
}

func TestReader_ReadTable(t *testing.T) {
	r := NewReader(writeWorkbook(t))
	tbl, err := r.ReadTable(context.Background(), "URBANO")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}

	liq, _ := tbl.Column("LIQ_2025")
	if !liq.IsNumeric() {
		t.Fatalf("native numbers must keep their provenance: %+v", liq.Cells)
	}
	if got := analysis.SafeSum(tbl, "LIQ_2025"); got != 3000.25 {
		t.Fatalf("LIQ_2025 total = %v", got)
	}
	// Header is trimmed and the short second row is padded.
	if got := analysis.SafeSum(tbl, "LEY 44"); got != 1100.5 {
		t.Fatalf("LEY 44 total = %v", got)
	}

	txt, _ := tbl.Column("AVALUO_TXT")
	if txt.IsNumeric() {
		t.Fatalf("string cells must stay text")
	}
	n := core.ToNumeric(txt)
	if !n[0].Valid || n[0].Float != 1234.5 || n[1].Float != 15 {
		t.Fatalf("AVALUO_TXT = %+v", n)
	}
}

func TestReader_Errors(t *testing.T) {
	r := NewReader(writeWorkbook(t))
	if _, err := r.ReadTable(context.Background(), "GRUPO1-RURAL"); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatalf("err = %v, want ErrSheetNotFound", err)
	}
	if _, err := r.ReadTable(context.Background(), "VACIA"); !errors.Is(err, core.ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}

	missing := NewReader(filepath.Join(t.TempDir(), "none.xlsx"))
	if _, err := missing.ReadTable(context.Background(), "URBANO"); err == nil {
		t.Fatalf("expected an error for a missing workbook")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.ReadTable(ctx, "URBANO"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
