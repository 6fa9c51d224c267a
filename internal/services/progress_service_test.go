package services

import (
	"context"
	"testing"

	"catchup/internal/models"
)

func TestFirstToggleMarksCompleted(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewProgressService(db)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "token-p1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	task, err := svc.Toggle(ctx, user.ID, "d1t1", 0, models.ModeSurvival)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !task.Completed {
		t.Error("first toggle must create the row completed")
	}
	if task.TaskID != "d1t1" || task.DayIndex != 0 {
		t.Errorf("task = %+v, want d1t1 day 0", task)
	}
}

func TestToggleIsInvolution(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewProgressService(db)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "token-p2")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	want := []bool{true, false, true, false}
	for i, expected := range want {
		task, err := svc.Toggle(ctx, user.ID, "d2t3", 1, models.ModeThriving)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if task.Completed != expected {
			t.Fatalf("toggle %d: completed = %v, want %v", i, task.Completed, expected)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM task_progress WHERE user_id = ?`, user.ID).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 progress row after repeated toggles, got %d", count)
	}
}

func TestAggregateEmpty(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewProgressService(db)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "token-p3")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	summary, err := svc.Aggregate(ctx, user.ID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.TotalTasks != 0 || summary.CompletedTasks != 0 {
		t.Errorf("empty summary has counts: %+v", summary)
	}
	if summary.CompletionRate != 0 {
		t.Errorf("completionRate = %v, want 0 for no tasks", summary.CompletionRate)
	}
	if summary.TasksByDay == nil || len(summary.TasksByDay) != 0 {
		t.Errorf("TasksByDay = %v, want empty map", summary.TasksByDay)
	}
}

func TestAggregateCounts(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	svc := NewProgressService(db)
	ctx := context.Background()

	user, err := users.GetOrCreate(ctx, "token-p4")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	// d1t1 ends completed, d1t2 ends uncompleted, d2t1 ends completed
	if _, err := svc.Toggle(ctx, user.ID, "d1t1", 0, models.ModeSurvival); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Toggle(ctx, user.ID, "d1t2", 0, models.ModeSurvival); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Toggle(ctx, user.ID, "d1t2", 0, models.ModeSurvival); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Toggle(ctx, user.ID, "d2t1", 1, models.ModeSurvival); err != nil {
		t.Fatal(err)
	}

	summary, err := svc.Aggregate(ctx, user.ID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if summary.TotalTasks != 3 || summary.CompletedTasks != 2 {
		t.Errorf("counts = %d/%d, want 2 of 3 completed", summary.CompletedTasks, summary.TotalTasks)
	}
	if summary.CompletionRate < 0 || summary.CompletionRate > 1 {
		t.Errorf("completionRate = %v, out of [0,1]", summary.CompletionRate)
	}
	if got := summary.CompletionRate; got < 0.66 || got > 0.67 {
		t.Errorf("completionRate = %v, want 2/3", got)
	}

	day0 := summary.TasksByDay[0]
	if day0.Total != 2 || day0.Completed != 1 {
		t.Errorf("day 0 = %+v, want 1 of 2", day0)
	}
	day1 := summary.TasksByDay[1]
	if day1.Total != 1 || day1.Completed != 1 {
		t.Errorf("day 1 = %+v, want 1 of 1", day1)
	}
}
