package jobs

import (
	"context"
	"log"
	"time"

	"catchup/internal/services"
)

// SessionCleanupJob deletes users who have been inactive past the
// retention window, together with every row they own.
type SessionCleanupJob struct {
	users         *services.UserService
	retentionDays int
}

// NewSessionCleanupJob creates the retention cleanup job
func NewSessionCleanupJob(users *services.UserService, retentionDays int) *SessionCleanupJob {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &SessionCleanupJob{users: users, retentionDays: retentionDays}
}

// Run executes the retention cleanup
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	log.Printf("[RETENTION] Deleting users inactive since %s", cutoff.Format(time.RFC3339))

	deleted, err := j.users.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	log.Printf("[RETENTION] Deleted %d inactive users", deleted)
	return nil
}

// GetNextRunTime schedules the job daily at 03:00 UTC
func (j *SessionCleanupJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
