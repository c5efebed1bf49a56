// Package storage archives snapshots of the committee's books in SQLite.
// It is a single-user backup store, not the live ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"committee/internal/core"

	_ "modernc.org/sqlite"
)

type (
	SQLiteRepository struct {
		db  *sql.DB
		now func() time.Time
	}

	// BackupInfo describes a stored backup without its payload.
	BackupInfo struct {
		ID               string
		Label            string
		CreatedAt        time.Time
		TransactionCount int
	}

	Backup struct {
		BackupInfo
		Payload []byte
	}
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveBackup stores payload under a fresh id and returns its description.
func (r *SQLiteRepository) SaveBackup(ctx context.Context, label string, txnCount int, payload []byte) (BackupInfo, error) {
	info := BackupInfo{
		ID:               uuid.NewString(),
		Label:            label,
		CreatedAt:        r.now().UTC(),
		TransactionCount: txnCount,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backups (id, label, created_at, transaction_count, payload) VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.Label, info.CreatedAt.UnixNano(), info.TransactionCount, payload)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("insert backup: %w", err)
	}

	slog.InfoContext(ctx, "Backup saved to SQLite",
		"id", info.ID,
		"label", info.Label,
		"transactions", info.TransactionCount,
		"bytes", len(payload))
	return info, nil
}

func (r *SQLiteRepository) GetBackup(ctx context.Context, id string) (Backup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, label, created_at, transaction_count, payload FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, &core.NotFoundError{Kind: "backup", Name: id}
	}
	return b, err
}

// LatestBackup returns the most recent backup. ok is false when none exist.
func (r *SQLiteRepository) LatestBackup(ctx context.Context) (b Backup, ok bool, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, label, created_at, transaction_count, payload FROM backups ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	b, err = scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, false, nil
	}
	if err != nil {
		return Backup{}, false, err
	}
	return b, true, nil
}

// ListBackups lists backups newest first. A non-positive limit lists all.
func (r *SQLiteRepository) ListBackups(ctx context.Context, limit int) ([]BackupInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, created_at, transaction_count FROM backups ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []BackupInfo
	for rows.Next() {
		var (
			info BackupInfo
			ns   int64
		)
		if err := rows.Scan(&info.ID, &info.Label, &ns, &info.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		info.CreatedAt = time.Unix(0, ns).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return out, nil
}

func scanBackup(row *sql.Row) (Backup, error) {
	var (
		b  Backup
		ns int64
	)
	if err := row.Scan(&b.ID, &b.Label, &ns, &b.TransactionCount, &b.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Backup{}, err
		}
		return Backup{}, fmt.Errorf("scan backup: %w", err)
	}
	b.CreatedAt = time.Unix(0, ns).UTC()
	return b, nil
}
