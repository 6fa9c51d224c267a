package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"catchup/internal/apperrors"
	"catchup/internal/models"
)

const triageSystemPrompt = `You are CatchUp AI, an empathetic academic recovery assistant for Indian students preparing for competitive exams (NEET, JEE, CBSE/ICSE boards, college semesters).

Your role is to:
1. Acknowledge the student's stress and situation with genuine empathy
2. Analyze which subjects need the most urgent attention
3. Provide a clear, actionable triage of their academic situation
4. Give them hope and a concrete first step

Respond in a warm, supportive tone. Use simple language. Reference Indian exam patterns and syllabi when relevant.

Output your response in the following JSON format:
{
  "narrative": "A 2-3 paragraph empathetic message addressing the student directly...",
  "subjects": [
    {
      "name": "Physics",
      "status": "critical|warning|on-track",
      "priority": 1,
      "hoursNeeded": 45,
      "topicsToFocus": ["Mechanics", "Thermodynamics"],
      "reason": "Why this subject needs attention"
    }
  ],
  "quickWin": {
    "title": "A quick, achievable task",
    "description": "What to do and why it helps",
    "timeMinutes": 15,
    "subject": "Physics"
  }
}`

// TriageService turns an onboarding profile into a triage assessment
// via the completion service.
type TriageService struct {
	completions *CompletionClient
	users       *UserService
	metrics     *Metrics
}

// NewTriageService creates a new triage service
func NewTriageService(completions *CompletionClient, users *UserService, metrics *Metrics) *TriageService {
	return &TriageService{completions: completions, users: users, metrics: metrics}
}

// Validate checks the required triage fields
func (s *TriageService) Validate(req *models.TriageRequest) error {
	if req.Exam == "" {
		return apperrors.Validation("Missing required fields")
	}
	if len(req.Subjects) == 0 {
		return apperrors.Validation("Missing required fields")
	}
	if req.StressLevel < 1 || req.StressLevel > 10 {
		return apperrors.Validation("Missing required fields")
	}
	return nil
}

// EmotionFor maps a stress level to the speech delivery emotion
func EmotionFor(stressLevel int) string {
	if stressLevel >= 7 {
		return EmotionEmpathetic
	}
	return EmotionEncouraging
}

func triageUserPrompt(req *models.TriageRequest) string {
	return fmt.Sprintf(`Student Profile:
- Exam: %s
- Subjects: %s
- Days absent: %d
- Reason: %s
- Stress level: %d/10
- Their worry: "%s"

Please analyze their situation and provide a triage assessment.`,
		req.Exam, strings.Join(req.Subjects, ", "), req.DaysAbsent,
		req.AbsenceReason, req.StressLevel, req.WorryText)
}

// Generate runs the primary triage call: deterministic prompt, JSON
// response format, strict parse. No fallback triage is synthesized on
// failure.
func (s *TriageService) Generate(ctx context.Context, req *models.TriageRequest) (*models.TriageResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.GenerationRequests.WithLabelValues("triage").Inc()
	}

	content, err := s.completions.Complete(ctx, triageSystemPrompt, triageUserPrompt(req), CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   2000,
		JSONMode:    true,
	})
	if err != nil {
		s.countError("triage", err)
		return nil, err
	}

	result, err := parseTriageContent(content)
	if err != nil {
		s.countError("triage", err)
		return nil, err
	}
	return result, nil
}

func parseTriageContent(content string) (*models.TriageResult, error) {
	var result models.TriageResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, apperrors.Generation("unparsable triage response", err)
	}
	if result.Narrative == "" || len(result.Subjects) == 0 {
		return nil, apperrors.Generation("incomplete triage response", nil)
	}
	for _, subject := range result.Subjects {
		if !models.ValidSubjectStatus(subject.Status) {
			return nil, apperrors.Generation(
				fmt.Sprintf("unrecognized subject status %q in triage response", subject.Status), nil)
		}
	}
	return &result, nil
}

// GenerateStream runs the prose-only streaming variant. Fragments go
// to onChunk as they arrive; nothing is persisted.
func (s *TriageService) GenerateStream(ctx context.Context, req *models.TriageRequest, onChunk func(text string)) error {
	if s.metrics != nil {
		s.metrics.GenerationRequests.WithLabelValues("triage_stream").Inc()
	}

	// Drop the JSON format instructions from the system prompt; the
	// streaming variant wants plain narrative prose.
	systemPrompt := triageSystemPrompt
	if idx := strings.Index(systemPrompt, "Output your response"); idx >= 0 {
		systemPrompt = systemPrompt[:idx]
	}

	userPrompt := fmt.Sprintf(`Student Profile:
- Exam: %s
- Subjects: %s
- Days absent: %d
- Reason: %s
- Stress level: %d/10
- Their worry: "%s"

Please provide an empathetic, encouraging triage message directly to the student. Speak to them in second person. Do NOT use JSON format - just write the narrative message naturally.`,
		req.Exam, strings.Join(req.Subjects, ", "), req.DaysAbsent,
		req.AbsenceReason, req.StressLevel, req.WorryText)

	err := s.completions.Stream(ctx, systemPrompt, userPrompt, CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   1500,
	}, onChunk)
	if err != nil {
		s.countError("triage_stream", err)
		return err
	}
	return nil
}

// Save appends the result to the user's triage history
func (s *TriageService) Save(ctx context.Context, userID string, result *models.TriageResult) error {
	if err := s.users.SaveTriageResult(ctx, userID, result); err != nil {
		log.Printf("❌ [TRIAGE] Failed to save triage result for user %s: %v", userID, err)
		return err
	}
	return nil
}

func (s *TriageService) countError(kind string, err error) {
	if s.metrics != nil {
		s.metrics.GenerationErrors.WithLabelValues(kind, apperrors.CategoryOf(err).String()).Inc()
	}
}
