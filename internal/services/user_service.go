package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"catchup/internal/apperrors"
	"catchup/internal/database"
	"catchup/internal/models"

	"github.com/google/uuid"
)

// UserService resolves visitors by opaque session token and owns the
// onboarding/triage/plan rows attached to them.
type UserService struct {
	db *database.DB
}

// NewUserService creates a new user service
func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// GetOrCreate returns the user for sessionToken, creating one on
// first contact and touching last_active_at otherwise. An empty
// token mints a fresh random one.
func (s *UserService) GetOrCreate(ctx context.Context, sessionToken string) (*models.User, error) {
	if sessionToken == "" {
		sessionToken = uuid.New().String()
	}

	now := time.Now().UTC()

	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_token, created_at, last_active_at FROM users WHERE session_token = ?`,
		sessionToken,
	).Scan(&user.ID, &user.SessionToken, &user.CreatedAt, &user.LastActiveAt)

	switch {
	case err == sql.ErrNoRows:
		user = models.User{
			ID:           uuid.New().String(),
			SessionToken: sessionToken,
			CreatedAt:    now,
			LastActiveAt: now,
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO users (id, session_token, created_at, last_active_at) VALUES (?, ?, ?, ?)`,
			user.ID, user.SessionToken, user.CreatedAt, user.LastActiveAt,
		)
		if err != nil {
			return nil, apperrors.Dependency("creating user", err)
		}
		return &user, nil
	case err != nil:
		return nil, apperrors.Dependency("looking up user", err)
	}

	user.LastActiveAt = now
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active_at = ? WHERE id = ?`, now, user.ID,
	); err != nil {
		return nil, apperrors.Dependency("touching user", err)
	}
	return &user, nil
}

// SaveOnboarding upserts the single onboarding row for a user
func (s *UserService) SaveOnboarding(ctx context.Context, userID string, data *models.Onboarding) error {
	subjects, err := json.Marshal(data.Subjects)
	if err != nil {
		return fmt.Errorf("marshaling subjects: %w", err)
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE onboarding
		 SET exam = ?, subjects = ?, days_absent = ?, absence_reason = ?, stress_level = ?, worry_text = ?, updated_at = ?
		 WHERE user_id = ?`,
		data.Exam, string(subjects), data.DaysAbsent, data.AbsenceReason, data.StressLevel, data.WorryText, now, userID,
	)
	if err != nil {
		return apperrors.Dependency("updating onboarding", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO onboarding (user_id, exam, subjects, days_absent, absence_reason, stress_level, worry_text, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, data.Exam, string(subjects), data.DaysAbsent, data.AbsenceReason, data.StressLevel, data.WorryText, now,
	)
	if err != nil {
		return apperrors.Dependency("inserting onboarding", err)
	}
	return nil
}

// GetOnboarding returns the onboarding row, or nil if not submitted yet
func (s *UserService) GetOnboarding(ctx context.Context, userID string) (*models.Onboarding, error) {
	var ob models.Onboarding
	var subjects string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, exam, subjects, days_absent, absence_reason, stress_level, worry_text, updated_at
		 FROM onboarding WHERE user_id = ?`, userID,
	).Scan(&ob.UserID, &ob.Exam, &subjects, &ob.DaysAbsent, &ob.AbsenceReason, &ob.StressLevel, &ob.WorryText, &ob.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Dependency("loading onboarding", err)
	}
	if err := json.Unmarshal([]byte(subjects), &ob.Subjects); err != nil {
		return nil, fmt.Errorf("unmarshaling subjects: %w", err)
	}
	return &ob, nil
}

// SaveTriageResult appends an immutable triage row and returns it
func (s *UserService) SaveTriageResult(ctx context.Context, userID string, result *models.TriageResult) error {
	subjects, err := json.Marshal(result.Subjects)
	if err != nil {
		return fmt.Errorf("marshaling triage subjects: %w", err)
	}
	quickWin, err := json.Marshal(result.QuickWin)
	if err != nil {
		return fmt.Errorf("marshaling quick win: %w", err)
	}

	result.ID = uuid.New().String()
	result.UserID = userID
	result.CreatedAt = time.Now().UTC()

	var audioURL interface{}
	if result.AudioURL != "" {
		audioURL = result.AudioURL
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO triage_results (id, user_id, narrative, subjects, quick_win, audio_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, userID, result.Narrative, string(subjects), string(quickWin), audioURL, result.CreatedAt,
	)
	if err != nil {
		return apperrors.Dependency("saving triage result", err)
	}
	return nil
}

// LatestTriageResult returns the newest triage row, or nil if none exists
func (s *UserService) LatestTriageResult(ctx context.Context, userID string) (*models.TriageResult, error) {
	var tr models.TriageResult
	var subjects, quickWin string
	var audioURL sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, narrative, subjects, quick_win, audio_url, created_at
		 FROM triage_results WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT 1`, userID,
	).Scan(&tr.ID, &tr.UserID, &tr.Narrative, &subjects, &quickWin, &audioURL, &tr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Dependency("loading triage result", err)
	}
	if err := json.Unmarshal([]byte(subjects), &tr.Subjects); err != nil {
		return nil, fmt.Errorf("unmarshaling triage subjects: %w", err)
	}
	if err := json.Unmarshal([]byte(quickWin), &tr.QuickWin); err != nil {
		return nil, fmt.Errorf("unmarshaling quick win: %w", err)
	}
	tr.AudioURL = audioURL.String
	return &tr, nil
}

// ListPlanSummaries returns the {mode, updatedAt} pairs for a user
func (s *UserService) ListPlanSummaries(ctx context.Context, userID string) ([]models.PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, updated_at FROM recovery_plans WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, apperrors.Dependency("listing plans", err)
	}
	defer rows.Close()

	summaries := []models.PlanSummary{}
	for rows.Next() {
		var ps models.PlanSummary
		if err := rows.Scan(&ps.Mode, &ps.UpdatedAt); err != nil {
			return nil, apperrors.Dependency("scanning plan summary", err)
		}
		summaries = append(summaries, ps)
	}
	return summaries, rows.Err()
}

// Snapshot assembles the GET /api/user payload
func (s *UserService) Snapshot(ctx context.Context, user *models.User) (*models.UserSnapshot, error) {
	onboarding, err := s.GetOnboarding(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	latest, err := s.LatestTriageResult(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	plans, err := s.ListPlanSummaries(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var counts models.TaskCounts
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0)
		 FROM task_progress WHERE user_id = ?`, user.ID,
	).Scan(&counts.Total, &counts.Completed)
	if err != nil {
		return nil, apperrors.Dependency("counting task progress", err)
	}

	return &models.UserSnapshot{
		User:            user,
		Onboarding:      onboarding,
		HasTriageResult: latest != nil,
		Plans:           plans,
		TaskProgress:    counts,
	}, nil
}

// DeleteInactiveBefore removes users whose last activity predates
// cutoff, together with all rows they own. Used by the retention job.
func (s *UserService) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM users WHERE last_active_at < ?`, cutoff,
	)
	if err != nil {
		return 0, apperrors.Dependency("finding inactive users", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperrors.Dependency("scanning inactive user", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperrors.Dependency("iterating inactive users", err)
	}

	for _, id := range ids {
		for _, stmt := range []string{
			`DELETE FROM task_progress WHERE user_id = ?`,
			`DELETE FROM recovery_plans WHERE user_id = ?`,
			`DELETE FROM triage_results WHERE user_id = ?`,
			`DELETE FROM onboarding WHERE user_id = ?`,
			`DELETE FROM users WHERE id = ?`,
		} {
			if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
				return 0, apperrors.Dependency("deleting inactive user", err)
			}
		}
	}
	return len(ids), nil
}
