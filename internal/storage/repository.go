package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"predial/internal/core"
	"predial/internal/sheets"

	_ "modernc.org/sqlite"
)

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoImports is returned when the database holds no import yet.
var ErrNoImports = errors.New("no workbook imported yet")

// Import describes one workbook copy into the database.
type Import struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Sheets     int       `json:"sheets"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ sheets.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveImport records the import and replaces the stored copy of every
// given sheet in a single transaction.
func (r *SQLiteRepository) SaveImport(ctx context.Context, imp Import, tables []*core.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateImport(ctx, WorkbookImport{
		ID:         imp.ID,
		Source:     imp.Source,
		SheetCount: int64(imp.Sheets),
		RowCount:   int64(imp.Rows),
		ImportedAt: imp.ImportedAt.UTC().Format(timeLayout),
	}); err != nil {
		return fmt.Errorf("create import: %w", err)
	}

	cellStmt, err := tx.PrepareContext(ctx, insertSheetCell)
	if err != nil {
		return fmt.Errorf("prepare cell insert: %w", err)
	}
	defer cellStmt.Close()

	for pos, t := range tables {
		name := t.Name()
		if err := q.DeleteSheetCells(ctx, name); err != nil {
			return fmt.Errorf("clear cells of %q: %w", name, err)
		}
		if err := q.DeleteSheetColumns(ctx, name); err != nil {
			return fmt.Errorf("clear columns of %q: %w", name, err)
		}
		if err := q.UpsertSheet(ctx, Sheet{Name: name, ImportID: imp.ID, Position: int64(pos), RowCount: int64(t.Len())}); err != nil {
			return fmt.Errorf("save sheet %q: %w", name, err)
		}

		header, rows := t.Rows()
		for i, col := range header {
			if err := q.InsertSheetColumn(ctx, name, int64(i), col); err != nil {
				return fmt.Errorf("save column %q of %q: %w", col, name, err)
			}
		}
		for ri, row := range rows {
			for ci, c := range row {
				if c.IsEmpty() {
					continue
				}
				var num sql.NullFloat64
				if c.Kind == core.CellNumber {
					num = sql.NullFloat64{Float64: c.Number, Valid: true}
				}
				if _, err := cellStmt.ExecContext(ctx, name, ri, ci, int64(c.Kind), c.Raw, num); err != nil {
					return fmt.Errorf("save cell %d,%d of %q: %w", ri, ci, name, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Workbook import saved to SQLite",
		"import_id", imp.ID,
		"source", imp.Source,
		"sheets", len(tables),
		"rows", imp.Rows)
	return nil
}

// ReadTable implements sheets.TableReader
func (r *SQLiteRepository) ReadTable(ctx context.Context, sheet string) (*core.Table, error) {
	meta, err := r.queries.GetSheet(ctx, sheet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("get sheet %q: %w", sheet, err)
	}

	header, err := r.queries.ListSheetColumns(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", sheet, err)
	}
	cells, err := r.queries.ListSheetCells(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("list cells of %q: %w", sheet, err)
	}

	rows := make([][]core.Cell, meta.RowCount)
	for i := range rows {
		rows[i] = make([]core.Cell, len(header))
	}
	for _, c := range cells {
		if c.RowIndex >= meta.RowCount || c.ColIndex >= int64(len(header)) {
			continue
		}
		switch core.CellKind(c.Kind) {
		case core.CellNumber:
			rows[c.RowIndex][c.ColIndex] = core.NumberRaw(c.Raw, c.Number.Float64)
		case core.CellText:
			rows[c.RowIndex][c.ColIndex] = core.Text(c.Raw)
		}
	}
	return core.NewTable(sheet, header, rows)
}

// ListSheets implements sheets.SheetLister
func (r *SQLiteRepository) ListSheets(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListSheetNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	return names, nil
}

// LatestImport returns the most recent import.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (Import, error) {
	row, err := r.queries.GetLatestImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, ErrNoImports
	}
	if err != nil {
		return Import{}, fmt.Errorf("get latest import: %w", err)
	}
	return toImport(row)
}

// HasImport reports whether an import with the given id was saved.
func (r *SQLiteRepository) HasImport(ctx context.Context, id string) (bool, error) {
	n, err := r.queries.CountImportsByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("count imports: %w", err)
	}
	return n > 0, nil
}

// ListImports returns up to limit imports, newest first.
func (r *SQLiteRepository) ListImports(ctx context.Context, limit int) ([]Import, error) {
	rows, err := r.queries.ListImports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	out := make([]Import, 0, len(rows))
	for _, row := range rows {
		imp, err := toImport(row)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, nil
}

func toImport(row WorkbookImport) (Import, error) {
	at, err := time.Parse(timeLayout, row.ImportedAt)
	if err != nil {
		return Import{}, fmt.Errorf("parse import time %q: %w", row.ImportedAt, err)
	}
	return Import{
		ID:         row.ID,
		Source:     row.Source,
		Sheets:     int(row.SheetCount),
		Rows:       int(row.RowCount),
		ImportedAt: at,
	}, nil
}
