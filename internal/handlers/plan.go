package handlers

import (
	"log"

	"catchup/internal/apperrors"
	"catchup/internal/models"
	"catchup/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PlanHandler handles recovery plan generation
type PlanHandler struct {
	plans        *services.PlanService
	users        *services.UserService
	sessionState *services.SessionStateService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans *services.PlanService, users *services.UserService, sessionState *services.SessionStateService) *PlanHandler {
	return &PlanHandler{plans: plans, users: users, sessionState: sessionState}
}

type planRequestBody struct {
	SessionID     string                 `json:"sessionId"`
	Exam          string                 `json:"exam"`
	Subjects      []string               `json:"subjects"`
	DaysAbsent    int                    `json:"daysAbsent"`
	AbsenceReason string                 `json:"absenceReason"`
	StressLevel   int                    `json:"stressLevel"`
	TriageResult  models.PlanTriageInput `json:"triageResult"`
	Mode          string                 `json:"mode"`
}

// Generate creates a 14-day plan and overwrites any prior plan for
// the same (user, mode).
func (h *PlanHandler) Generate(c *fiber.Ctx) error {
	var body planRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields",
		})
	}

	req := &models.PlanRequest{
		Exam:          body.Exam,
		Subjects:      body.Subjects,
		DaysAbsent:    body.DaysAbsent,
		AbsenceReason: body.AbsenceReason,
		StressLevel:   body.StressLevel,
		TriageResult:  body.TriageResult,
		Mode:          body.Mode,
	}
	if err := h.plans.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": apperrors.ClientMessage(err, "Missing required fields"),
		})
	}

	user, err := h.users.GetOrCreate(c.Context(), body.SessionID)
	if err != nil {
		log.Printf("❌ [PLAN-API] Session resolution failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate recovery plan",
		})
	}

	plan, err := h.plans.Generate(c.Context(), req)
	if err != nil {
		log.Printf("❌ [PLAN-API] Generation failed: %v", err)
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": apperrors.ClientMessage(err, "Failed to generate recovery plan"),
		})
	}

	if err := h.plans.Save(c.Context(), user.ID, req.Mode, plan); err != nil {
		log.Printf("❌ [PLAN-API] Save failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate recovery plan",
		})
	}

	h.sessionState.SetPlan(user.SessionToken, &models.RecoveryPlan{
		UserID: user.ID,
		Mode:   req.Mode,
		Plan:   plan,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"plan":    plan,
		"mode":    req.Mode,
	})
}
