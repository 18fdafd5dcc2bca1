package backend

import (
	"context"
	"fmt"

	"predial/internal/cache"
	applog "predial/internal/log"
	"predial/internal/sheets"
	gsheet "predial/internal/sheets/google"
	"predial/internal/sheets/memory"
	"predial/internal/sheets/xlsx"
	"predial/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. The returned source is
// wrapped in a sheet cache.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		src     sheets.Source
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case XLSXBackend:
		src = xlsx.NewReader(config.WorkbookPath)
		f.logger.Info("Initialized xlsx backend", "workbook", config.WorkbookPath)
	case SQLiteBackend:
		src, cleanup, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		src, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		src, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	return &BackendResult{
		Source:  cache.NewTableCache(src),
		Raw:     src,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (sheets.Source, CleanupFunc, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (sheets.Source, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (sheets.Source, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized empty memory backend")
		return memory.New(), nil
	}
	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	names, _ := store.ListSheets(context.Background())
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory, "sheets", len(names))
	return store, nil
}
