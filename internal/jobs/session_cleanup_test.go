package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"catchup/internal/database"
	"catchup/internal/services"
)

func TestCleanupRemovesInactiveUsers(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		t.Fatalf("initializing database: %v", err)
	}

	users := services.NewUserService(db)
	ctx := context.Background()

	stale, err := users.GetOrCreate(ctx, "stale-token")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := users.GetOrCreate(ctx, "fresh-token"); err != nil {
		t.Fatalf("GetOrCreate fresh: %v", err)
	}

	old := time.Now().UTC().Add(-120 * 24 * time.Hour)
	if _, err := db.Exec(`UPDATE users SET last_active_at = ? WHERE id = ?`, old, stale.ID); err != nil {
		t.Fatalf("aging user: %v", err)
	}

	job := NewSessionCleanupJob(users, 90)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("counting users: %v", err)
	}
	if count != 1 {
		t.Errorf("users remaining = %d, want 1", count)
	}
}

func TestCleanupNextRunIsInTheFuture(t *testing.T) {
	job := NewSessionCleanupJob(nil, 90)

	next := job.GetNextRunTime()
	if !next.After(time.Now()) {
		t.Errorf("next run %v is not in the future", next)
	}
	if next.Hour() != 3 {
		t.Errorf("next run hour = %d, want 03:00 UTC", next.Hour())
	}
}
