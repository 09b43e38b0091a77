package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestBlobRepositoryRoundTrip(t *testing.T) {
	repo := NewBlobRepository(openTestDB(t))
	ctx := context.Background()

	if _, ok, err := repo.Load(ctx, "timers"); err != nil || ok {
		t.Fatalf("missing key: ok=%t err=%v", ok, err)
	}

	if err := repo.Save(ctx, "timers", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "timers", []byte(`[{"id":"b"}]`)); err != nil {
		t.Fatal(err)
	}

	blob, ok, err := repo.Load(ctx, "timers")
	if err != nil || !ok {
		t.Fatalf("load: ok=%t err=%v", ok, err)
	}
	if string(blob) != `[{"id":"b"}]` {
		t.Errorf("blob = %s", blob)
	}
}

func TestBlobRepositoryKeysAreIndependent(t *testing.T) {
	repo := NewBlobRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, "timers", []byte("[]")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "completedTimers", []byte(`[{"name":"Tea"}]`)); err != nil {
		t.Fatal(err)
	}

	blob, _, err := repo.Load(ctx, "timers")
	if err != nil || string(blob) != "[]" {
		t.Errorf("timers = %s, err = %v", blob, err)
	}
}

func TestSubscriberRepository(t *testing.T) {
	repo := NewSubscriberRepository(openTestDB(t))
	ctx := context.Background()

	first, err := repo.Upsert(ctx, 100, "Ann", "ann")
	if err != nil {
		t.Fatal(err)
	}
	again, err := repo.Upsert(ctx, 100, "Ann", "annie")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || again.Username != "annie" {
		t.Errorf("upsert created a new row or lost the update: %+v", again)
	}
	if _, err := repo.Upsert(ctx, 200, "Bob", ""); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetMuted(ctx, 100, true); err != nil {
		t.Fatal(err)
	}
	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ChatID != 200 {
		t.Errorf("active = %+v", active)
	}

	if err := repo.SetMuted(ctx, 100, false); err != nil {
		t.Fatal(err)
	}
	if active, _ := repo.ListActive(ctx); len(active) != 2 {
		t.Errorf("active after unmute = %d", len(active))
	}

	if err := repo.SetMuted(ctx, 999, true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("unknown chat err = %v", err)
	}
}

func TestPrepareSQLiteDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		in   string
		want string
	}{
		{"", "multi_timer.db?_busy_timeout=5000"},
		{":memory:", ":memory:"},
		{"file::memory:?cache=shared", "file::memory:?cache=shared"},
		{"timers.db?_journal_mode=WAL", "timers.db?_journal_mode=WAL&_busy_timeout=5000"},
		{"timers.db?_busy_timeout=100", "timers.db?_busy_timeout=100"},
		{filepath.Join(dir, "nested", "t.db"), filepath.Join(dir, "nested", "t.db") + "?_busy_timeout=5000"},
	}
	for _, tt := range tests {
		got, err := prepareSQLiteDSN(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("prepareSQLiteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
}
