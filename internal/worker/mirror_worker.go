// Package worker holds the background jobs that run beside the ledger: the
// spreadsheet mirror and the periodic backup.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"committee/internal/amqp"
	"committee/internal/metrics"
	"committee/internal/sheets"
)

// MirrorWorker copies every recorded transaction into the treasurer's
// spreadsheet, one row per transaction.
type MirrorWorker struct {
	sheet   sheets.LedgerAppender
	metrics *metrics.Metrics
}

func NewMirrorWorker(sheet sheets.LedgerAppender, m *metrics.Metrics) *MirrorWorker {
	return &MirrorWorker{sheet: sheet, metrics: m}
}

// HandleTransactionRecorded appends the transaction carried by msg. An error
// makes the consumer requeue the message.
func (w *MirrorWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Mirroring transaction",
		"message_id", msg.ID,
		"category", msg.Category,
		"recorded_at", msg.RecordedAt)

	txn := msg.Transaction()
	if err := txn.Validate(); err != nil {
		// Requeueing would not fix it.
		w.metrics.RowMirrored(metrics.ResultInvalid)
		slog.WarnContext(ctx, "Dropping invalid transaction message", "message_id", msg.ID, "error", err)
		return nil
	}

	ref, err := w.sheet.AppendTransaction(ctx, msg.ID, txn)
	if err != nil {
		w.metrics.RowMirrored(metrics.ResultError)
		return fmt.Errorf("append transaction %s: %w", msg.ID, err)
	}

	w.metrics.RowMirrored(metrics.ResultOK)
	slog.InfoContext(ctx, "Transaction mirrored", "message_id", msg.ID, "ref", ref)
	return nil
}
