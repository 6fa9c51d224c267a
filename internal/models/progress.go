package models

import "time"

// TaskProgress is one completion row, unique per (userId, taskId).
// Rows are only created or flipped, never deleted.
type TaskProgress struct {
	UserID    string    `json:"userId"`
	TaskID    string    `json:"taskId"`
	DayIndex  int       `json:"dayIndex"`
	PlanMode  string    `json:"planMode"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DayProgress is the per-day aggregate pair
type DayProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// ProgressSummary is the aggregate served by GET /api/progress
type ProgressSummary struct {
	TotalTasks     int                 `json:"totalTasks"`
	CompletedTasks int                 `json:"completedTasks"`
	CompletionRate float64             `json:"completionRate"`
	TasksByDay     map[int]DayProgress `json:"tasksByDay"`
}
