package services

import (
	"context"
	"database/sql"
	"time"

	"catchup/internal/apperrors"
	"catchup/internal/database"
	"catchup/internal/models"
)

// ProgressService tracks per-task completion. Rows accumulate or
// flip; nothing is ever deleted here.
type ProgressService struct {
	db *database.DB
}

// NewProgressService creates a new progress service
func NewProgressService(db *database.DB) *ProgressService {
	return &ProgressService{db: db}
}

// Toggle flips the completion state for (userID, taskID). A task's
// very first toggle always creates the row with completed=true: tasks
// start uncompleted client-side, so the first user action is assumed
// to be "mark done". There is no way to represent "explicitly marked
// incomplete" before that first row exists; preserved as specified.
func (s *ProgressService) Toggle(ctx context.Context, userID, taskID string, dayIndex int, planMode string) (*models.TaskProgress, error) {
	now := time.Now().UTC()

	var existing models.TaskProgress
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, task_id, day_index, plan_mode, completed, updated_at
		 FROM task_progress WHERE user_id = ? AND task_id = ?`,
		userID, taskID,
	).Scan(&existing.UserID, &existing.TaskID, &existing.DayIndex, &existing.PlanMode, &existing.Completed, &existing.UpdatedAt)

	switch {
	case err == sql.ErrNoRows:
		progress := &models.TaskProgress{
			UserID:    userID,
			TaskID:    taskID,
			DayIndex:  dayIndex,
			PlanMode:  planMode,
			Completed: true,
			UpdatedAt: now,
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO task_progress (user_id, task_id, day_index, plan_mode, completed, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			userID, taskID, dayIndex, planMode, true, now,
		); err != nil {
			return nil, apperrors.Dependency("creating task progress", err)
		}
		return progress, nil
	case err != nil:
		return nil, apperrors.Dependency("looking up task progress", err)
	}

	existing.Completed = !existing.Completed
	existing.UpdatedAt = now
	if _, err := s.db.ExecContext(ctx,
		`UPDATE task_progress SET completed = ?, updated_at = ? WHERE user_id = ? AND task_id = ?`,
		existing.Completed, now, userID, taskID,
	); err != nil {
		return nil, apperrors.Dependency("updating task progress", err)
	}
	return &existing, nil
}

// Aggregate returns the completion summary across all of a user's tasks
func (s *ProgressService) Aggregate(ctx context.Context, userID string) (*models.ProgressSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day_index, completed FROM task_progress WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, apperrors.Dependency("loading task progress", err)
	}
	defer rows.Close()

	summary := &models.ProgressSummary{
		TasksByDay: map[int]models.DayProgress{},
	}

	for rows.Next() {
		var dayIndex int
		var completed bool
		if err := rows.Scan(&dayIndex, &completed); err != nil {
			return nil, apperrors.Dependency("scanning task progress", err)
		}

		summary.TotalTasks++
		day := summary.TasksByDay[dayIndex]
		day.Total++
		if completed {
			summary.CompletedTasks++
			day.Completed++
		}
		summary.TasksByDay[dayIndex] = day
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Dependency("iterating task progress", err)
	}

	if summary.TotalTasks > 0 {
		summary.CompletionRate = float64(summary.CompletedTasks) / float64(summary.TotalTasks)
	}
	return summary, nil
}
