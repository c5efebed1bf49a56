package worker

import (
	"context"
	"log/slog"
	"time"

	"committee/internal/storage"
)

// Backupper is the part of the finance service the backup worker drives.
type Backupper interface {
	Backup(ctx context.Context, label string) (storage.BackupInfo, error)
}

type BackupWorker struct {
	books    Backupper
	interval time.Duration
}

func NewBackupWorker(books Backupper, interval time.Duration) *BackupWorker {
	return &BackupWorker{books: books, interval: interval}
}

// Run takes a backup every interval until ctx is done, then one last backup
// on the way out. A failed backup is logged and retried at the next tick.
func (w *BackupWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		slog.InfoContext(ctx, "Periodic backup disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Periodic backup started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; give the final backup its own deadline.
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			w.backup(final, "shutdown")
			cancel()
			return nil
		case <-ticker.C:
			w.backup(ctx, "periodic")
		}
	}
}

func (w *BackupWorker) backup(ctx context.Context, label string) {
	info, err := w.books.Backup(ctx, label)
	if err != nil {
		slog.ErrorContext(ctx, "Backup failed", "label", label, "error", err)
		return
	}
	slog.InfoContext(ctx, "Backup taken", "id", info.ID, "label", label, "transactions", info.TransactionCount)
}
