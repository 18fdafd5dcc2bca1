// Package main provides the workbook import CLI: it copies sheets of an
// .xlsx workbook into the SQLite database, inline or through the queue.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"predial/internal/amqp"
	"predial/internal/cli"
	"predial/internal/config"
	applog "predial/internal/log"
	"predial/internal/services"
	"predial/internal/storage"
)

var (
	sheetNames []string
	dbPath     string
	enqueue    bool
	importID   string
	limit      int
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentImport)

	rootCmd := &cobra.Command{
		Use:   "predial-import [workbook.xlsx]",
		Short: "Copy workbook sheets into the predial database",
		Long: `predial-import copies the sheets of an Excel workbook into the SQLite
database read by the sqlite backend. With --enqueue the import is queued
for predial-worker instead of running inline. The workbook is never modified.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cfg, args[0])
		},
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: SQLITE_DB_PATH)")
	rootCmd.Flags().StringSliceVarP(&sheetNames, "sheet", "s", nil, "Sheet to copy; repeatable (default: all sheets)")
	rootCmd.Flags().BoolVar(&enqueue, "enqueue", false, "Queue the import for predial-worker instead of importing inline")
	rootCmd.Flags().StringVar(&importID, "id", "", "Import id (UUID); generated when empty")

	historyCmd := &cobra.Command{
		Use:           "history",
		Short:         "List recent imports",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cfg)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of imports to list")
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Import failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func runImport(ctx context.Context, cfg *config.Config, workbook string) error {
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	if err := cfg.ValidateImport(enqueue); err != nil {
		return err
	}

	abs, err := filepath.Abs(workbook)
	if err != nil {
		return fmt.Errorf("resolve workbook path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("file not found: %s", workbook)
	}

	req := services.ImportRequest{ID: importID, Workbook: abs, Sheets: sheetNames}
	if err := req.Validate(); err != nil {
		return err
	}

	if enqueue {
		return enqueueImport(ctx, cfg, req)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	ictx, cancel := context.WithTimeout(ctx, cfg.ImportTimeout)
	defer cancel()
	imp, err := services.NewImportService(repo).Import(ictx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s sheets (%s rows) from %s as %s\n",
		humanize.Comma(int64(imp.Sheets)), humanize.Comma(int64(imp.Rows)), imp.Source, imp.ID)
	return nil
}

func enqueueImport(ctx context.Context, cfg *config.Config, req services.ImportRequest) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	msg := amqp.NewImportMessage(req.Workbook, req.Sheets)
	if req.ID != "" {
		msg.ImportID = req.ID
	}
	if err := client.PublishImport(ctx, msg); err != nil {
		return fmt.Errorf("publish import: %w", err)
	}
	fmt.Printf("Queued import %s of %s on %s\n", msg.ImportID, filepath.Base(req.Workbook), cfg.AMQPQueue)
	return nil
}

func runHistory(ctx context.Context, cfg *config.Config) error {
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	imports, err := repo.ListImports(ctx, limit)
	if err != nil {
		return err
	}
	if len(imports) == 0 {
		fmt.Println("No imports yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tSHEETS\tROWS\tIMPORTED")
	for _, imp := range imports {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			imp.ID, imp.Source, imp.Sheets, humanize.Comma(int64(imp.Rows)), humanize.Time(imp.ImportedAt))
	}
	return w.Flush()
}
