package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"predial/internal/amqp"
	"predial/internal/services"
	"predial/internal/sheets"
	"predial/internal/storage"
)

type fakeImporter struct {
	calls []services.ImportRequest
	err   error
}

func (f *fakeImporter) Import(ctx context.Context, req services.ImportRequest) (storage.Import, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return storage.Import{}, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return storage.Import{}, errors.New("import called without a deadline")
	}
	return storage.Import{ID: req.ID, Sheets: 2, Rows: 10}, nil
}

type fakeLedger struct {
	done map[string]bool
	err  error
}

func (f fakeLedger) HasImport(_ context.Context, id string) (bool, error) {
	return f.done[id], f.err
}

func message() *amqp.ImportMessage {
	return &amqp.ImportMessage{
		ImportID:  "4f1c2a9e-8a53-4d5e-9d7b-1f0b6f9d2c11",
		Workbook:  "/data/predial.xlsx",
		Sheets:    []string{"URBANO"},
		Timestamp: time.Now(),
	}
}

func TestImportWorker_HandleImportMessage(t *testing.T) {
	imp := &fakeImporter{}
	w := NewImportWorker(imp, fakeLedger{}, time.Minute)

	if err := w.HandleImportMessage(context.Background(), message()); err != nil {
		t.Fatalf("HandleImportMessage: %v", err)
	}
	if len(imp.calls) != 1 {
		t.Fatalf("importer called %d times, want 1", len(imp.calls))
	}
	got := imp.calls[0]
	if got.ID != message().ImportID || got.Workbook != "/data/predial.xlsx" || len(got.Sheets) != 1 || got.Sheets[0] != "URBANO" {
		t.Fatalf("request = %+v", got)
	}
}

func TestImportWorker_SkipsCompletedImport(t *testing.T) {
	imp := &fakeImporter{}
	msg := message()
	w := NewImportWorker(imp, fakeLedger{done: map[string]bool{msg.ImportID: true}}, 0)

	if err := w.HandleImportMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleImportMessage: %v", err)
	}
	if len(imp.calls) != 0 {
		t.Fatalf("completed import must not run again")
	}
}

func TestImportWorker_Errors(t *testing.T) {
	tests := []struct {
		name        string
		importErr   error
		ledgerErr   error
		wantRequeue bool
	}{
		{"transient import failure", errors.New("database is locked"), nil, true},
		{"ledger failure", nil, errors.New("disk I/O error"), true},
		{"missing workbook", fmt.Errorf("list sheets: %w", fs.ErrNotExist), nil, false},
		{"missing sheet", fmt.Errorf("read sheet: %w", sheets.ErrSheetNotFound), nil, false},
		{"invalid request", fmt.Errorf("%w: bad id", services.ErrInvalidRequest), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewImportWorker(&fakeImporter{err: tt.importErr}, fakeLedger{err: tt.ledgerErr}, time.Minute)
			err := w.HandleImportMessage(context.Background(), message())
			if (err != nil) != tt.wantRequeue {
				t.Fatalf("err = %v, wantRequeue %v", err, tt.wantRequeue)
			}
		})
	}
}
