// Package worker drains recorded transactions into the treasurer
// spreadsheet, driven by AMQP events with a periodic pending scan as backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quote/internal/amqp"
	"quote/internal/core"
	"quote/internal/metrics"
	"quote/internal/sheets"
	"quote/internal/storage"
)

// ExportWorker moves committed transactions from the store to the
// spreadsheet. Export is at-least-once: a transaction already exported stays
// exported, and a failed append flags the row so the scan can report it.
type ExportWorker struct {
	store     *storage.Store
	writer    sheets.TransactionWriter
	batchSize int
}

func NewExportWorker(store *storage.Store, writer sheets.TransactionWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleRecordedMessage exports the transaction named by one AMQP event.
// The row is re-read from the store; the event only carries identifiers.
func (w *ExportWorker) HandleRecordedMessage(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing recorded event",
		"event_id", msg.EventID,
		"transaction_id", msg.ID,
		"number", msg.Number)

	row, err := w.store.ExportRowByID(ctx, msg.ID)
	if errors.Is(err, core.ErrUnknownTransaction) {
		// Deleted before the worker got to it. Nothing to export.
		slog.WarnContext(ctx, "Recorded transaction no longer exists, skipping",
			"transaction_id", msg.ID, "number", msg.Number)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load export row: %w", err)
	}

	return w.export(ctx, row)
}

// ProcessPending exports committed transactions the event path missed. This
// is the backup mechanism for messages lost between commit and publish.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending export: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, row := range pending {
		if err := w.export(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", row.TransactionID,
				"number", row.Number,
				"error", err)
		}
	}
	return nil
}

// StartupCheck drains a larger pending backlog once at worker start, to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending export at startup: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...", "count", len(pending))

	exported, failed := 0, 0
	for _, row := range pending {
		if err := w.export(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"transaction_id", row.TransactionID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, row storage.ExportRow) error {
	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, row.TransactionID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"transaction_id", row.TransactionID, "error", markErr)
		}
		metrics.ExportedTransactions.WithLabelValues("error").Inc()
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, row.TransactionID); err != nil {
		// The append landed; a pending re-export just duplicates one row.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"transaction_id", row.TransactionID, "error", err)
	}

	metrics.ExportedTransactions.WithLabelValues("success").Inc()
	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", row.TransactionID,
		"number", row.Number,
		"sheet_ref", ref,
		"amount_cents", row.AmountCents)
	return nil
}
