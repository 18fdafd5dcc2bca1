package sheets

import (
	"context"
	"errors"

	"predial/internal/core"
)

// ErrSheetNotFound is returned by readers when the requested sheet does not
// exist in the source.
var ErrSheetNotFound = errors.New("sheet not found")

// Ports for outbound adapters.
type (
	// TableReader loads one sheet of the source as a table. The first row
	// of the sheet is the header.
	TableReader interface {
		ReadTable(ctx context.Context, sheet string) (*core.Table, error)
	}

	// SheetLister returns the sheet names available in the source.
	SheetLister interface {
		ListSheets(ctx context.Context) ([]string, error)
	}

	// Source is a readable sheet source.
	Source interface {
		TableReader
		SheetLister
	}
)
