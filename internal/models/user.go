package models

import "time"

// User identifies a visitor by an opaque session token.
// Created lazily on first contact with an unrecognized token.
type User struct {
	ID           string    `json:"id"`
	SessionToken string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// Onboarding holds a student's intake answers. At most one row per
// user; resubmission overwrites in place.
type Onboarding struct {
	UserID        string    `json:"userId"`
	Exam          string    `json:"exam"`
	Subjects      []string  `json:"subjects"`
	DaysAbsent    int       `json:"daysAbsent"`
	AbsenceReason string    `json:"absenceReason"`
	StressLevel   int       `json:"stressLevel"`
	WorryText     string    `json:"worryText"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserSnapshot is the aggregate view served by GET /api/user
type UserSnapshot struct {
	User            *User           `json:"user"`
	Onboarding      *Onboarding     `json:"onboarding"`
	HasTriageResult bool            `json:"hasTriageResult"`
	Plans           []PlanSummary   `json:"plans"`
	TaskProgress    TaskCounts      `json:"taskProgress"`
}

// TaskCounts is the aggregate completion count pair
type TaskCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}
