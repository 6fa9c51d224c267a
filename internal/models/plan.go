package models

import "time"

// Recovery plan modes
const (
	ModeSurvival = "survival"
	ModeThriving = "thriving"
)

// ValidPlanMode reports whether mode is one of the two recognized values
func ValidPlanMode(mode string) bool {
	return mode == ModeSurvival || mode == ModeThriving
}

// PlanTriageInput is the triage-derived portion of a plan request
type PlanTriageInput struct {
	Subjects []TriageSubject `json:"subjects"`
}

// PlanRequest is the validated input to the plan generator
type PlanRequest struct {
	Exam          string          `json:"exam"`
	Subjects      []string        `json:"subjects"`
	DaysAbsent    int             `json:"daysAbsent"`
	AbsenceReason string          `json:"absenceReason"`
	StressLevel   int             `json:"stressLevel"`
	TriageResult  PlanTriageInput `json:"triageResult"`
	Mode          string          `json:"mode"`
}

// PlanTask is one task inside a plan day
type PlanTask struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Type      string `json:"type"` // study | practice | revision | test
	Completed bool   `json:"completed"`
}

// PlanDay is one day of the 14-day recovery plan
type PlanDay struct {
	Day        int        `json:"day"`
	Date       string     `json:"date,omitempty"`
	Theme      string     `json:"theme"`
	Tasks      []PlanTask `json:"tasks"`
	KeyInsight string     `json:"keyInsight"`
	Tradeoff   string     `json:"tradeoff"`
}

// PlanDocument is the structured plan body persisted per (user, mode)
type PlanDocument struct {
	Overview   string    `json:"overview,omitempty"`
	Days       []PlanDay `json:"days"`
	Tradeoffs  []string  `json:"tradeoffs,omitempty"`
	KeyInsight string    `json:"keyInsight,omitempty"`
}

// RecoveryPlan is the persisted plan row. Unique per (userId, mode);
// regenerating a mode overwrites in place.
type RecoveryPlan struct {
	UserID    string        `json:"userId"`
	Mode      string        `json:"mode"`
	Plan      *PlanDocument `json:"plan"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PlanSummary is the {mode, updatedAt} pair listed on the user snapshot
type PlanSummary struct {
	Mode      string    `json:"mode"`
	UpdatedAt time.Time `json:"updatedAt"`
}
