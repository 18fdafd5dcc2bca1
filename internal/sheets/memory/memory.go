package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"predial/internal/core"
	ports "predial/internal/sheets"
)

// Store keeps tables in process memory.
type Store struct {
	mu     sync.Mutex
	order  []string
	tables map[string]*core.Table
}

var _ ports.Source = (*Store)(nil)

func New(tables ...*core.Table) *Store {
	s := &Store{tables: make(map[string]*core.Table)}
	for _, t := range tables {
		s.Put(t)
	}
	return s
}

// NewFromFiles seeds a store with one sheet per "<SHEET>.csv" file in base.
// CSV carries no types, so every value is loaded as text. A missing
// directory yields an empty store.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	paths, err := filepath.Glob(filepath.Join(base, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		t, err := readCSV(name, p)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", p, err)
		}
		s.Put(t)
	}
	return s, nil
}

// Put stores or replaces the table under its name.
func (s *Store) Put(t *core.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.Name()]; !ok {
		s.order = append(s.order, t.Name())
	}
	s.tables[t.Name()] = t
}

// ReadTable returns the stored table.
func (s *Store) ReadTable(_ context.Context, sheet string) (*core.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, sheet)
	}
	return t, nil
}

// ListSheets returns sheet names in insertion order.
func (s *Store) ListSheets(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func readCSV(name, path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.ErrNoHeader
	}
	rows := make([][]core.Cell, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]core.Cell, len(rec))
		for i, v := range rec {
			row[i] = core.Text(v)
		}
		rows = append(rows, row)
	}
	return core.NewTable(name, records[0], rows)
}
