package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fleetledger/internal/amqp"
	"fleetledger/internal/export"
	"fleetledger/internal/ledger"
	"fleetledger/internal/metrics"
	"fleetledger/internal/sheets"
	"fleetledger/internal/statement"
)

// defaultFormats are rendered when an export request names none.
var defaultFormats = []string{export.FormatPDF, export.FormatXLSX}

// ExportWorker renders stored statements to files and optionally archives
// them to Google Sheets.
type ExportWorker struct {
	store     ledger.Store
	archiver  sheets.Archiver
	exportDir string
	batchSize int
}

func NewExportWorker(store ledger.Store, archiver sheets.Archiver, exportDir string, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		archiver:  archiver,
		exportDir: exportDir,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single export request from AMQP
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.StatementExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"statement_id", msg.StatementID,
		"formats", msg.Formats)

	doc, err := w.store.GetStatement(ctx, msg.StatementID)
	if err != nil {
		return fmt.Errorf("get statement from store: %w", err)
	}

	return w.exportStatement(ctx, doc, msg.Formats)
}

// exportStatement renders every requested format into the export directory,
// archives the statement when an archiver is configured, and records the
// outcome on the statement.
func (w *ExportWorker) exportStatement(ctx context.Context, doc statement.Document, formats []string) error {
	if len(formats) == 0 {
		formats = defaultFormats
	}

	if err := os.MkdirAll(w.exportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	for _, format := range formats {
		start := time.Now()
		data, err := export.Build(format, &doc)
		if err != nil {
			metrics.ObserveStatementExport(format, metrics.ResultError, time.Since(start))
			w.markError(ctx, doc.ID)
			return fmt.Errorf("render %s: %w", format, err)
		}

		path := filepath.Join(w.exportDir, fmt.Sprintf("%s.%s", doc.ID, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			metrics.ObserveStatementExport(format, metrics.ResultError, time.Since(start))
			w.markError(ctx, doc.ID)
			return fmt.Errorf("write %s: %w", path, err)
		}
		metrics.ObserveStatementExport(format, metrics.ResultSuccess, time.Since(start))

		slog.InfoContext(ctx, "Statement rendered",
			"statement_id", doc.ID,
			"format", format,
			"path", path,
			"bytes", len(data))
	}

	if w.archiver != nil {
		ref, err := w.archiver.ArchiveStatement(ctx, &doc)
		if err != nil {
			w.markError(ctx, doc.ID)
			return fmt.Errorf("archive statement: %w", err)
		}
		slog.InfoContext(ctx, "Statement archived", "statement_id", doc.ID, "ref", ref)
	}

	if err := w.store.MarkExported(ctx, doc.ID); err != nil {
		// The files exist; don't fail the message over bookkeeping.
		slog.ErrorContext(ctx, "Failed to mark statement exported",
			"statement_id", doc.ID, "error", err)
	}

	return nil
}

func (w *ExportWorker) markError(ctx context.Context, id string) {
	if err := w.store.MarkExportError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark export error",
			"statement_id", id, "error", err)
	}
}

// ProcessPendingExports renders statements that never got an export message.
// This is the backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, id := range pending {
		doc, err := w.store.GetStatement(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending statement",
				"statement_id", id, "error", err)
			w.markError(ctx, id)
			continue
		}
		if err := w.exportStatement(ctx, doc, nil); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending statement",
				"statement_id", id, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck drains pending exports at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, id := range pending {
		doc, err := w.store.GetStatement(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load statement for startup export",
				"statement_id", id, "error", err)
			w.markError(ctx, id)
			errorCount++
			continue
		}
		if err := w.exportStatement(ctx, doc, nil); err != nil {
			slog.ErrorContext(ctx, "Failed to export statement during startup",
				"statement_id", id, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}
