package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type WorkbookImport struct {
	ID         string
	Source     string
	SheetCount int64
	RowCount   int64
	ImportedAt string
}

const createImport = `INSERT INTO workbook_imports (id, source, sheet_count, row_count, imported_at)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateImport(ctx context.Context, arg WorkbookImport) error {
	_, err := q.db.ExecContext(ctx, createImport, arg.ID, arg.Source, arg.SheetCount, arg.RowCount, arg.ImportedAt)
	return err
}

const getLatestImport = `SELECT id, source, sheet_count, row_count, imported_at
FROM workbook_imports ORDER BY imported_at DESC, id DESC LIMIT 1`

func (q *Queries) GetLatestImport(ctx context.Context) (WorkbookImport, error) {
	row := q.db.QueryRowContext(ctx, getLatestImport)
	var i WorkbookImport
	err := row.Scan(&i.ID, &i.Source, &i.SheetCount, &i.RowCount, &i.ImportedAt)
	return i, err
}

const countImportsByID = `SELECT COUNT(*) FROM workbook_imports WHERE id = ?`

func (q *Queries) CountImportsByID(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countImportsByID, id)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const listImports = `SELECT id, source, sheet_count, row_count, imported_at
FROM workbook_imports ORDER BY imported_at DESC, id DESC LIMIT ?`

func (q *Queries) ListImports(ctx context.Context, limit int64) ([]WorkbookImport, error) {
	rows, err := q.db.QueryContext(ctx, listImports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WorkbookImport
	for rows.Next() {
		var i WorkbookImport
		if err := rows.Scan(&i.ID, &i.Source, &i.SheetCount, &i.RowCount, &i.ImportedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type Sheet struct {
	Name     string
	ImportID string
	Position int64
	RowCount int64
}

const deleteSheetCells = `DELETE FROM sheet_cells WHERE sheet = ?`

func (q *Queries) DeleteSheetCells(ctx context.Context, sheet string) error {
	_, err := q.db.ExecContext(ctx, deleteSheetCells, sheet)
	return err
}

const deleteSheetColumns = `DELETE FROM sheet_columns WHERE sheet = ?`

func (q *Queries) DeleteSheetColumns(ctx context.Context, sheet string) error {
	_, err := q.db.ExecContext(ctx, deleteSheetColumns, sheet)
	return err
}

const upsertSheet = `INSERT INTO sheets (name, import_id, position, row_count) VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET import_id = excluded.import_id, position = excluded.position, row_count = excluded.row_count`

func (q *Queries) UpsertSheet(ctx context.Context, arg Sheet) error {
	_, err := q.db.ExecContext(ctx, upsertSheet, arg.Name, arg.ImportID, arg.Position, arg.RowCount)
	return err
}

const getSheet = `SELECT name, import_id, position, row_count FROM sheets WHERE name = ?`

func (q *Queries) GetSheet(ctx context.Context, name string) (Sheet, error) {
	row := q.db.QueryRowContext(ctx, getSheet, name)
	var s Sheet
	err := row.Scan(&s.Name, &s.ImportID, &s.Position, &s.RowCount)
	return s, err
}

const listSheetNames = `SELECT name FROM sheets ORDER BY position, name`

func (q *Queries) ListSheetNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSheetNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

const insertSheetColumn = `INSERT INTO sheet_columns (sheet, position, name) VALUES (?, ?, ?)`

func (q *Queries) InsertSheetColumn(ctx context.Context, sheet string, position int64, name string) error {
	_, err := q.db.ExecContext(ctx, insertSheetColumn, sheet, position, name)
	return err
}

const listSheetColumns = `SELECT name FROM sheet_columns WHERE sheet = ? ORDER BY position`

func (q *Queries) ListSheetColumns(ctx context.Context, sheet string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSheetColumns, sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

type SheetCell struct {
	RowIndex int64
	ColIndex int64
	Kind     int64
	Raw      string
	Number   sql.NullFloat64
}

const insertSheetCell = `INSERT INTO sheet_cells (sheet, row_index, col_index, kind, raw, number) VALUES (?, ?, ?, ?, ?, ?)`

const listSheetCells = `SELECT row_index, col_index, kind, raw, number FROM sheet_cells
WHERE sheet = ? ORDER BY row_index, col_index`

func (q *Queries) ListSheetCells(ctx context.Context, sheet string) ([]SheetCell, error) {
	rows, err := q.db.QueryContext(ctx, listSheetCells, sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SheetCell
	for rows.Next() {
		var c SheetCell
		if err := rows.Scan(&c.RowIndex, &c.ColIndex, &c.Kind, &c.Raw, &c.Number); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
