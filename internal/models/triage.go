package models

import "time"

// Subject status values the triage generator is allowed to emit
const (
	StatusCritical = "critical"
	StatusWarning  = "warning"
	StatusOnTrack  = "on-track"
)

// ValidSubjectStatus reports whether s is one of the recognized
// triage statuses.
func ValidSubjectStatus(s string) bool {
	return s == StatusCritical || s == StatusWarning || s == StatusOnTrack
}

// TriageRequest is the validated onboarding profile sent to the
// completion service.
type TriageRequest struct {
	Exam          string   `json:"exam"`
	Subjects      []string `json:"subjects"`
	DaysAbsent    int      `json:"daysAbsent"`
	AbsenceReason string   `json:"absenceReason"`
	StressLevel   int      `json:"stressLevel"`
	WorryText     string   `json:"worryText"`
}

// TriageSubject is the per-subject assessment inside a triage result
type TriageSubject struct {
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Priority      int      `json:"priority"`
	HoursNeeded   float64  `json:"hoursNeeded"`
	TopicsToFocus []string `json:"topicsToFocus"`
	Reason        string   `json:"reason"`
}

// QuickWin is the single achievable first task the triage suggests
type QuickWin struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TimeMinutes int    `json:"timeMinutes"`
	Subject     string `json:"subject"`
}

// TriageResult is one immutable triage assessment. History is
// append-only; the latest row by CreatedAt is the active one.
type TriageResult struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Narrative string          `json:"narrative"`
	Subjects  []TriageSubject `json:"subjects"`
	QuickWin  QuickWin        `json:"quickWin"`
	AudioURL  string          `json:"audioUrl,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
