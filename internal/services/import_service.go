package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"predial/internal/core"
	"predial/internal/sheets"
	"predial/internal/sheets/xlsx"
	"predial/internal/storage"
)

// ImportStore persists imported sheets.
type ImportStore interface {
	SaveImport(ctx context.Context, imp storage.Import, tables []*core.Table) error
}

// ErrInvalidRequest marks import requests rejected before any file is read.
var ErrInvalidRequest = errors.New("invalid import request")

// ImportRequest asks for a workbook to be copied into the store.
type ImportRequest struct {
	// ID is optional; queued imports carry the id assigned when enqueued.
	ID       string
	Workbook string
	// Sheets limits the copy to the named sheets; empty copies all of them.
	Sheets []string
}

// Validate checks the request before any file is opened.
func (r ImportRequest) Validate() error {
	if strings.TrimSpace(r.Workbook) == "" {
		return errors.New("workbook path is required")
	}
	if r.ID != "" {
		if _, err := uuid.Parse(r.ID); err != nil {
			return fmt.Errorf("invalid import id %q: %w", r.ID, err)
		}
	}
	for _, s := range r.Sheets {
		if strings.TrimSpace(s) == "" {
			return errors.New("sheet names must not be blank")
		}
	}
	return nil
}

// ImportService copies workbook sheets into the store. The workbook is
// only read.
type ImportService struct {
	store ImportStore
	open  func(path string) sheets.Source
	now   func() time.Time
}

// NewImportService creates an import service reading .xlsx workbooks.
func NewImportService(store ImportStore) *ImportService {
	return &ImportService{
		store: store,
		open:  func(path string) sheets.Source { return xlsx.NewReader(path) },
		now:   time.Now,
	}
}

// Import reads the requested sheets and saves them as one import.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (storage.Import, error) {
	if err := req.Validate(); err != nil {
		return storage.Import{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	src := s.open(req.Workbook)
	names := req.Sheets
	if len(names) == 0 {
		var err error
		names, err = src.ListSheets(ctx)
		if err != nil {
			return storage.Import{}, fmt.Errorf("list sheets: %w", err)
		}
	}

	tables := make([]*core.Table, 0, len(names))
	rows := 0
	for _, name := range names {
		t, err := src.ReadTable(ctx, name)
		if errors.Is(err, core.ErrNoHeader) && len(req.Sheets) == 0 {
			// Blank sheets are skipped when copying a whole workbook.
			slog.WarnContext(ctx, "Skipping empty sheet", "import_id", id, "sheet", name)
			continue
		}
		if err != nil {
			return storage.Import{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		tables = append(tables, t)
		rows += t.Len()
	}

	imp := storage.Import{
		ID:         id,
		Source:     filepath.Base(req.Workbook),
		Sheets:     len(tables),
		Rows:       rows,
		ImportedAt: s.now(),
	}
	if err := s.store.SaveImport(ctx, imp, tables); err != nil {
		return storage.Import{}, fmt.Errorf("save import: %w", err)
	}

	slog.InfoContext(ctx, "Workbook imported",
		"import_id", imp.ID,
		"workbook", req.Workbook,
		"sheets", imp.Sheets,
		"rows", imp.Rows)
	return imp, nil
}
