package handlers

import (
	"log"

	"catchup/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProgressHandler handles task completion tracking
type ProgressHandler struct {
	progress *services.ProgressService
	users    *services.UserService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *services.ProgressService, users *services.UserService) *ProgressHandler {
	return &ProgressHandler{progress: progress, users: users}
}

// Get serves the aggregate progress summary
func (h *ProgressHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID required",
		})
	}

	user, err := h.users.GetOrCreate(c.Context(), sessionID)
	if err != nil {
		log.Printf("❌ [PROGRESS-API] Session resolution failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch progress",
		})
	}

	summary, err := h.progress.Aggregate(c.Context(), user.ID)
	if err != nil {
		log.Printf("❌ [PROGRESS-API] Aggregate failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch progress",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"progress": summary,
	})
}

// Toggle flips a task's completion state
func (h *ProgressHandler) Toggle(c *fiber.Ctx) error {
	var body struct {
		SessionID string `json:"sessionId"`
		TaskID    string `json:"taskId"`
		DayIndex  *int   `json:"dayIndex"` // pointer: day 0 is valid, absent is not
		PlanMode  string `json:"planMode"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.SessionID == "" || body.TaskID == "" || body.DayIndex == nil || body.PlanMode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields: sessionId, taskId, dayIndex, planMode",
		})
	}

	user, err := h.users.GetOrCreate(c.Context(), body.SessionID)
	if err != nil {
		log.Printf("❌ [PROGRESS-API] Session resolution failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update progress",
		})
	}

	task, err := h.progress.Toggle(c.Context(), user.ID, body.TaskID, *body.DayIndex, body.PlanMode)
	if err != nil {
		log.Printf("❌ [PROGRESS-API] Toggle failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update progress",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"task": fiber.Map{
			"taskId":    task.TaskID,
			"completed": task.Completed,
			"dayIndex":  task.DayIndex,
		},
	})
}
