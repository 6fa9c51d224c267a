package services

import (
	"context"
	"testing"

	"catchup/internal/apperrors"
	"catchup/internal/models"
)

func validPlanRequest() *models.PlanRequest {
	return &models.PlanRequest{
		Exam:          "NEET",
		Subjects:      []string{"Physics", "Biology"},
		DaysAbsent:    10,
		AbsenceReason: "illness",
		StressLevel:   6,
		TriageResult: models.PlanTriageInput{
			Subjects: []models.TriageSubject{
				{Name: "Physics", Status: models.StatusCritical, Priority: 1},
				{Name: "Biology", Status: models.StatusWarning, Priority: 2},
			},
		},
		Mode: models.ModeSurvival,
	}
}

func TestPlanValidation(t *testing.T) {
	svc := NewPlanService(nil, nil, nil)

	req := validPlanRequest()
	req.Mode = "chaotic"
	err := svc.Validate(req)
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("error category = %v, want validation", apperrors.CategoryOf(err))
	}
	if got := apperrors.ClientMessage(err, ""); got != "Mode must be 'survival' or 'thriving'" {
		t.Errorf("client message = %q", got)
	}

	req = validPlanRequest()
	req.TriageResult.Subjects = nil
	if err := svc.Validate(req); err == nil {
		t.Error("expected error for missing triage result")
	}

	req = validPlanRequest()
	req.Mode = models.ModeThriving
	if err := svc.Validate(req); err != nil {
		t.Errorf("valid thriving request rejected: %v", err)
	}
}

func TestPlanGenerate(t *testing.T) {
	content := `{
		"days": [
			{
				"day": 1,
				"theme": "Foundation Reset",
				"tasks": [
					{"id": "d1t1", "subject": "Physics", "title": "Newton's laws force diagrams", "duration": "45 min", "type": "revision", "completed": false},
					{"id": "d1t2", "subject": "Biology", "title": "Cell structure recap", "duration": "30 min", "type": "revision", "completed": false}
				],
				"keyInsight": "Rebuild momentum with fundamentals",
				"tradeoff": "Skipping organic chemistry today"
			}
		]
	}`
	server := newFakeCompletionServer(t, content)

	completions := NewCompletionClient(newTestProviders(server.URL), 100, nil)
	svc := NewPlanService(completions, nil, nil)

	plan, err := svc.Generate(context.Background(), validPlanRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(plan.Days) != 1 {
		t.Fatalf("got %d days", len(plan.Days))
	}
	if len(plan.Days[0].Tasks) != 2 {
		t.Errorf("day 1 has %d tasks, want 2", len(plan.Days[0].Tasks))
	}
	if plan.Days[0].Tasks[0].ID != "d1t1" {
		t.Errorf("task id = %q", plan.Days[0].Tasks[0].ID)
	}
}

func TestPlanGenerateRejectsEmptyPlan(t *testing.T) {
	server := newFakeCompletionServer(t, `{"days": []}`)

	completions := NewCompletionClient(newTestProviders(server.URL), 100, nil)
	svc := NewPlanService(completions, nil, nil)

	_, err := svc.Generate(context.Background(), validPlanRequest())
	if err == nil {
		t.Fatal("expected error for empty plan")
	}
	if apperrors.CategoryOf(err) != apperrors.CategoryGeneration {
		t.Errorf("error category = %v, want generation", apperrors.CategoryOf(err))
	}
}

func TestPlanSaveOverwritesPerMode(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewPlanService(nil, db, nil)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "token-plan")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	for i := 0; i < 3; i++ {
		plan := &models.PlanDocument{
			Days: []models.PlanDay{{Day: 1, Theme: "Revision", KeyInsight: "v", Tradeoff: "t"}},
		}
		plan.Days[0].Theme = []string{"First", "Second", "Third"}[i]
		if err := svc.Save(ctx, user.ID, models.ModeSurvival, plan); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM recovery_plans WHERE user_id = ? AND mode = ?`,
		user.ID, models.ModeSurvival).Scan(&count); err != nil {
		t.Fatalf("counting plans: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single survival plan row, got %d", count)
	}

	stored, err := svc.Get(ctx, user.ID, models.ModeSurvival)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Plan.Days[0].Theme != "Third" {
		t.Errorf("stored theme = %q, want the last save", stored.Plan.Days[0].Theme)
	}

	// A different mode gets its own row
	if err := svc.Save(ctx, user.ID, models.ModeThriving, &models.PlanDocument{
		Days: []models.PlanDay{{Day: 1, Theme: "Deep work"}},
	}); err != nil {
		t.Fatalf("Save thriving: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM recovery_plans WHERE user_id = ?`, user.ID).Scan(&count); err != nil {
		t.Fatalf("counting all plans: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows across modes, got %d", count)
	}
}

func TestPlanGetMissing(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewPlanService(nil, db, nil)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "token-plan-miss")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	plan, err := svc.Get(ctx, user.ID, models.ModeSurvival)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if plan != nil {
		t.Errorf("expected nil for a never-generated plan, got %+v", plan)
	}
}
