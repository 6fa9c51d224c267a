package handlers

import (
	"log"

	"catchup/internal/apperrors"
	"catchup/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles session resolution and the user snapshot
type UserHandler struct {
	users        *services.UserService
	sessionState *services.SessionStateService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService, sessionState *services.SessionStateService) *UserHandler {
	return &UserHandler{users: users, sessionState: sessionState}
}

// Get serves the aggregate user snapshot
func (h *UserHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID required",
		})
	}

	user, err := h.users.GetOrCreate(c.Context(), sessionID)
	if err != nil {
		log.Printf("❌ [USER-API] User fetch error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user data",
		})
	}

	snapshot, err := h.users.Snapshot(c.Context(), user)
	if err != nil {
		log.Printf("❌ [USER-API] Snapshot error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user data",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":           user.ID,
			"sessionId":    user.SessionToken,
			"createdAt":    user.CreatedAt,
			"lastActiveAt": user.LastActiveAt,
		},
		"onboarding":      snapshot.Onboarding,
		"hasTriageResult": snapshot.HasTriageResult,
		"plans":           snapshot.Plans,
		"taskProgress":    snapshot.TaskProgress,
	})
}

// Create resolves or creates a session
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	// Empty body is fine - a fresh session token is minted
	_ = c.BodyParser(&req)

	user, err := h.users.GetOrCreate(c.Context(), req.SessionID)
	if err != nil {
		log.Printf("❌ [USER-API] User creation error: %v", err)
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": "Failed to create user session",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": user.SessionToken,
		"userId":    user.ID,
	})
}

// Reset clears the session-scoped view state
func (h *UserHandler) Reset(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID required",
		})
	}

	h.sessionState.Reset(req.SessionID)
	return c.JSON(fiber.Map{"success": true})
}
