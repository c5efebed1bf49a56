package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"committee/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "committee.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndGetBackup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	info, err := repo.SaveBackup(ctx, "manual", 3, []byte(`{"transactions":[]}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if info.ID == "" || info.CreatedAt.IsZero() {
		t.Fatalf("info = %+v", info)
	}

	got, err := repo.GetBackup(ctx, info.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Label != "manual" || got.TransactionCount != 3 || string(got.Payload) != `{"transactions":[]}` {
		t.Fatalf("backup = %+v", got)
	}
	if !got.CreatedAt.Equal(info.CreatedAt) {
		t.Fatalf("created at %v, want %v", got.CreatedAt, info.CreatedAt)
	}

	var nf *core.NotFoundError
	if _, err := repo.GetBackup(ctx, "missing"); !errors.As(err, &nf) {
		t.Fatalf("missing backup: got %v", err)
	}
}

func TestLatestAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.LatestBackup(ctx); err != nil || ok {
		t.Fatalf("empty archive: ok=%v err=%v", ok, err)
	}

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var ids []string
	for i, label := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Hour)
		repo.now = func() time.Time { return at }
		info, err := repo.SaveBackup(ctx, label, i, []byte("{}"))
		if err != nil {
			t.Fatalf("save %s: %v", label, err)
		}
		ids = append(ids, info.ID)
	}

	latest, ok, err := repo.LatestBackup(ctx)
	if err != nil || !ok || latest.ID != ids[2] {
		t.Fatalf("latest = %+v ok=%v err=%v", latest.BackupInfo, ok, err)
	}

	all, err := repo.ListBackups(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Label != "third" || all[2].Label != "first" {
		t.Fatalf("list order = %+v", all)
	}

	two, _ := repo.ListBackups(ctx, 2)
	if len(two) != 2 {
		t.Fatalf("limit ignored: %d", len(two))
	}
}

func TestReopenKeepsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "committee.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.SaveBackup(context.Background(), "x", 0, []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	repo.Close()

	// Migrations are idempotent on an existing archive.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	list, _ := repo.ListBackups(context.Background(), 0)
	if len(list) != 1 {
		t.Fatalf("backups after reopen = %d", len(list))
	}
}
