package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"predial/internal/amqp"
	"predial/internal/core"
	"predial/internal/services"
	"predial/internal/sheets"
	"predial/internal/storage"
)

// Importer runs one workbook import.
type Importer interface {
	Import(ctx context.Context, req services.ImportRequest) (storage.Import, error)
}

// ImportLedger tells whether an import already completed.
type ImportLedger interface {
	HasImport(ctx context.Context, id string) (bool, error)
}

// ImportWorker handles import messages from AMQP
type ImportWorker struct {
	importer Importer
	ledger   ImportLedger
	timeout  time.Duration
}

func NewImportWorker(importer Importer, ledger ImportLedger, timeout time.Duration) *ImportWorker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ImportWorker{importer: importer, ledger: ledger, timeout: timeout}
}

// HandleImportMessage runs the import described by msg. A returned error
// asks for redelivery; imports that can never succeed are logged and
// acknowledged.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportMessage) error {
	slog.InfoContext(ctx, "Processing import message",
		"import_id", msg.ImportID,
		"workbook", msg.Workbook,
		"sheets", msg.Sheets)

	// Redelivered after a successful save whose ack was lost.
	done, err := w.ledger.HasImport(ctx, msg.ImportID)
	if err != nil {
		return fmt.Errorf("check import %s: %w", msg.ImportID, err)
	}
	if done {
		slog.InfoContext(ctx, "Import already completed, skipping", "import_id", msg.ImportID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	imp, err := w.importer.Import(ctx, services.ImportRequest{
		ID:       msg.ImportID,
		Workbook: msg.Workbook,
		Sheets:   msg.Sheets,
	})
	if err != nil {
		if isPermanent(err) {
			slog.ErrorContext(ctx, "Import failed permanently, dropping message",
				"import_id", msg.ImportID,
				"error", err)
			return nil
		}
		return fmt.Errorf("import %s: %w", msg.ImportID, err)
	}

	slog.InfoContext(ctx, "Successfully imported workbook",
		"import_id", imp.ID,
		"sheets", imp.Sheets,
		"rows", imp.Rows,
		"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond))
	return nil
}

// isPermanent reports errors that a retry cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, sheets.ErrSheetNotFound) ||
		errors.Is(err, core.ErrNoHeader) ||
		errors.Is(err, services.ErrInvalidRequest)
}
