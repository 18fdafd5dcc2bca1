package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"predial/internal/config"
	applog "predial/internal/log"
	"predial/internal/sheets"
)

func quietFactory() Factory {
	return NewFactory(applog.New(applog.Config{Handler: applog.NewHandler(io.Discard, slog.LevelInfo, "text")}))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"unknown type", Config{Type: "postgres"}, "invalid backend type"},
		{"xlsx without workbook", Config{Type: XLSXBackend}, "workbook path is required"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Spreadsheet ID is required"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"}, "GoogleServiceAccountFile"},
		{"memory", Config{Type: MemoryBackend}, ""},
		{"xlsx", Config{Type: XLSXBackend, WorkbookPath: "book.xlsx"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "csv"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "memory", MemoryDataDir: "/seed", WorkbookPath: "w.xlsx"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != MemoryBackend || cfg.DataDirectory != "/seed" || cfg.WorkbookPath != "w.xlsx" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestCreateBackend_MemorySeededFromCSV(t *testing.T) {
	dir := t.TempDir()
	csv := "CODIGO,AVALUO\n0100,\"1.234.567,89\"\n"
	if err := os.WriteFile(filepath.Join(dir, "PREDIOS NUEVOS.csv"), []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	tbl, err := res.Source.ReadTable(context.Background(), "PREDIOS NUEVOS")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Len() != 1 || !tbl.Has("AVALUO") {
		t.Fatalf("table = %v rows, columns %v", tbl.Len(), tbl.Columns())
	}
	if res.Source.Loaded() != 1 {
		t.Fatalf("sheet not cached")
	}
	if _, err := res.Source.ReadTable(context.Background(), "URBANO"); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatalf("missing sheet err = %v", err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predial.db")
	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	names, err := res.Source.ListSheets(context.Background())
	if err != nil || len(names) != 0 {
		t.Fatalf("ListSheets = %v, %v", names, err)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	if _, err := quietFactory().CreateBackend(context.Background(), Config{Type: "bogus"}); err == nil {
		t.Fatal("expected error")
	}
}
