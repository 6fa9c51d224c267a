package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catchup/internal/apperrors"
	"catchup/internal/database"
	"catchup/internal/models"
)

const planSystemPrompt = `You are CatchUp AI's study plan generator. Create a detailed 14-day recovery plan for an Indian student.

For "survival" mode: Focus on passing - cover minimum viable topics, prioritize high-weightage areas.
For "thriving" mode: Aim for excellence - comprehensive coverage with deeper understanding.

Each day should have 4-6 tasks with realistic time estimates. Tasks should be specific (not generic like "study physics").

Output as JSON:
{
  "days": [
    {
      "day": 1,
      "theme": "Foundation Reset",
      "tasks": [
        {
          "id": "d1t1",
          "subject": "Physics",
          "title": "Review Newton's Laws - Force diagrams",
          "duration": "45 min",
          "type": "revision|practice|test",
          "completed": false
        }
      ],
      "keyInsight": "Why this day matters",
      "tradeoff": "What we're skipping and why it's okay"
    }
  ]
}`

// PlanService generates and persists 14-day recovery plans
type PlanService struct {
	completions *CompletionClient
	db          *database.DB
	metrics     *Metrics
}

// NewPlanService creates a new plan service
func NewPlanService(completions *CompletionClient, db *database.DB, metrics *Metrics) *PlanService {
	return &PlanService{completions: completions, db: db, metrics: metrics}
}

// Validate checks the required plan-generation fields
func (s *PlanService) Validate(req *models.PlanRequest) error {
	if req.Exam == "" || len(req.Subjects) == 0 || len(req.TriageResult.Subjects) == 0 {
		return apperrors.Validation("Missing required fields")
	}
	if !models.ValidPlanMode(req.Mode) {
		return apperrors.Validation("Mode must be 'survival' or 'thriving'")
	}
	return nil
}

func planUserPrompt(req *models.PlanRequest) string {
	var triageLines []string
	for _, s := range req.TriageResult.Subjects {
		triageLines = append(triageLines, fmt.Sprintf("- %s: %s (priority %d)", s.Name, s.Status, s.Priority))
	}

	modeGoal := "Aim for excellence - comprehensive coverage with deeper understanding."
	if req.Mode == models.ModeSurvival {
		modeGoal = "Focus on passing - minimum viable coverage of high-weightage topics only."
	}

	return fmt.Sprintf(`Create a %s mode 14-day recovery plan.

Student Profile:
- Exam: %s
- Subjects: %s
- Days absent: %d
- Reason: %s

Subject Triage:
%s

Mode: %s
%s`,
		req.Mode, req.Exam, strings.Join(req.Subjects, ", "), req.DaysAbsent,
		req.AbsenceReason, strings.Join(triageLines, "\n"), req.Mode, modeGoal)
}

// Generate produces the mode-specific plan. Empty or unparsable
// completion content is a generation error; no fallback plan is built.
func (s *PlanService) Generate(ctx context.Context, req *models.PlanRequest) (*models.PlanDocument, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.GenerationRequests.WithLabelValues("plan").Inc()
	}

	content, err := s.completions.Complete(ctx, planSystemPrompt, planUserPrompt(req), CompletionOptions{
		Temperature: 0.6,
		MaxTokens:   4000,
		JSONMode:    true,
	})
	if err != nil {
		s.countError(err)
		return nil, err
	}

	var plan models.PlanDocument
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		s.countError(err)
		return nil, apperrors.Generation("unparsable plan response", err)
	}
	if len(plan.Days) == 0 {
		err := apperrors.Generation("empty plan response", nil)
		s.countError(err)
		return nil, err
	}

	return &plan, nil
}

// Save upserts the plan keyed by (user, mode), overwriting any prior
// plan for that mode. Switching modes is generate-and-replace.
func (s *PlanService) Save(ctx context.Context, userID, mode string, plan *models.PlanDocument) error {
	body, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan body: %w", err)
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE recovery_plans SET plan_body = ?, updated_at = ? WHERE user_id = ? AND mode = ?`,
		string(body), now, userID, mode,
	)
	if err != nil {
		return apperrors.Dependency("updating plan", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recovery_plans (user_id, mode, plan_body, updated_at) VALUES (?, ?, ?, ?)`,
		userID, mode, string(body), now,
	)
	if err != nil {
		return apperrors.Dependency("inserting plan", err)
	}
	return nil
}

// Get loads the plan for (user, mode), or nil if never generated
func (s *PlanService) Get(ctx context.Context, userID, mode string) (*models.RecoveryPlan, error) {
	var rp models.RecoveryPlan
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, mode, plan_body, updated_at FROM recovery_plans WHERE user_id = ? AND mode = ?`,
		userID, mode,
	).Scan(&rp.UserID, &rp.Mode, &body, &rp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Dependency("loading plan", err)
	}

	rp.Plan = &models.PlanDocument{}
	if err := json.Unmarshal([]byte(body), rp.Plan); err != nil {
		return nil, fmt.Errorf("unmarshaling plan body: %w", err)
	}
	return &rp, nil
}

func (s *PlanService) countError(err error) {
	if s.metrics != nil {
		s.metrics.GenerationErrors.WithLabelValues("plan", apperrors.CategoryOf(err).String()).Inc()
	}
}
