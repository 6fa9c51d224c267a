package handlers

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"catchup/internal/apperrors"
	"catchup/internal/logging"
	"catchup/internal/models"
	"catchup/internal/presenter"
	"catchup/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// TriageHandler handles the triage pipeline endpoints
type TriageHandler struct {
	triage       *services.TriageService
	speech       *services.SpeechService
	users        *services.UserService
	sessionState *services.SessionStateService
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(triage *services.TriageService, speech *services.SpeechService, users *services.UserService, sessionState *services.SessionStateService) *TriageHandler {
	return &TriageHandler{triage: triage, speech: speech, users: users, sessionState: sessionState}
}

// audioMarker is what gets persisted in audio_url when synthesis
// succeeded. The payload itself ships only in the response body; at
// ~235KB per audio-second base64-encoded it would overflow the MySQL
// TEXT column.
const audioMarker = "data:audio/wav;base64,"

type triageRequestBody struct {
	SessionID     string   `json:"sessionId"`
	Exam          string   `json:"exam"`
	Subjects      []string `json:"subjects"`
	DaysAbsent    int      `json:"daysAbsent"`
	AbsenceReason string   `json:"absenceReason"`
	StressLevel   int      `json:"stressLevel"`
	WorryText     string   `json:"worryText"`
}

// Generate runs the full triage pipeline: persist onboarding, call the
// completion service, synthesize speech (best effort), persist the
// result. Speech failure never fails the request - audio comes back null.
func (h *TriageHandler) Generate(c *fiber.Ctx) error {
	var body triageRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req := &models.TriageRequest{
		Exam:          body.Exam,
		Subjects:      body.Subjects,
		DaysAbsent:    body.DaysAbsent,
		AbsenceReason: body.AbsenceReason,
		StressLevel:   body.StressLevel,
		WorryText:     body.WorryText,
	}
	if err := h.triage.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields",
		})
	}

	user, err := h.users.GetOrCreate(c.Context(), body.SessionID)
	if err != nil {
		log.Printf("❌ [TRIAGE-API] Session resolution failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate triage analysis",
		})
	}

	onboarding := &models.Onboarding{
		UserID:        user.ID,
		Exam:          req.Exam,
		Subjects:      req.Subjects,
		DaysAbsent:    req.DaysAbsent,
		AbsenceReason: req.AbsenceReason,
		StressLevel:   req.StressLevel,
		WorryText:     req.WorryText,
	}
	if err := h.users.SaveOnboarding(c.Context(), user.ID, onboarding); err != nil {
		log.Printf("❌ [TRIAGE-API] Failed to save onboarding: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate triage analysis",
		})
	}
	h.sessionState.SetOnboarding(user.SessionToken, onboarding)

	reqLog := logging.WithSession(user.SessionToken, user.ID)
	reqLog.Info("triage pipeline started", "exam", req.Exam, "stress_level", req.StressLevel)

	result, err := h.triage.Generate(c.Context(), req)
	if err != nil {
		log.Printf("❌ [TRIAGE-API] Generation failed: %v", err)
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": apperrors.ClientMessage(err, "Failed to generate triage analysis"),
		})
	}

	// Speech synthesis is best effort: log and continue without audio
	var audioBase64 *string
	audio, ttsErr := h.speech.Synthesize(c.Context(), &services.SpeechRequest{
		Text:    result.Narrative,
		Emotion: services.EmotionFor(req.StressLevel),
		Speed:   services.SpeedSlow,
	})
	if ttsErr != nil {
		log.Printf("⚠️  [TRIAGE-API] TTS generation failed, continuing without audio: %v", ttsErr)
	} else {
		encoded := base64.StdEncoding.EncodeToString(audio)
		audioBase64 = &encoded
		result.AudioURL = audioMarker
	}

	if err := h.triage.Save(c.Context(), user.ID, result); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate triage analysis",
		})
	}
	h.sessionState.SetTriage(user.SessionToken, result)

	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": user.SessionToken,
		"triage":    result,
		"audio":     audioBase64,
	})
}

// Stream serves the SSE narrative endpoints: a live prose stream from
// the completion service, or a paced replay of the latest persisted
// narrative when replay=1.
func (h *TriageHandler) Stream(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID required",
		})
	}

	replay := c.Query("replay") == "1"
	durationMs, _ := strconv.Atoi(c.Query("durationMs"))

	req := &models.TriageRequest{
		Exam:          c.Query("exam", "NEET"),
		Subjects:      splitSubjects(c.Query("subjects")),
		DaysAbsent:    queryInt(c, "daysAbsent", 7),
		AbsenceReason: c.Query("reason", "illness"),
		StressLevel:   queryInt(c, "stress", 5),
		WorryText:     c.Query("worry"),
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber context is gone once this writer runs
		ctx := context.Background()

		user, err := h.users.GetOrCreate(ctx, sessionID)
		if err != nil {
			writeSSEError(w)
			return
		}

		if replay {
			h.streamReplay(ctx, w, user.ID, durationMs)
			return
		}

		err = h.triage.GenerateStream(ctx, req, func(text string) {
			writeSSEText(w, text)
		})
		if err != nil {
			log.Printf("❌ [TRIAGE-API] Stream failed: %v", err)
			writeSSEError(w)
			return
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

// streamReplay paces the latest stored narrative word by word against
// the assumed playback budget.
func (h *TriageHandler) streamReplay(ctx context.Context, w *bufio.Writer, userID string, durationMs int) {
	latest, err := h.users.LatestTriageResult(ctx, userID)
	if err != nil || latest == nil {
		writeSSEError(w)
		return
	}

	reveal := presenter.New(latest.Narrative, time.Duration(durationMs)*time.Millisecond)

	prev := 0
	err = reveal.Play(ctx, func(step string) error {
		writeSSEText(w, step[prev:])
		prev = len(step)
		return nil
	})
	if err != nil {
		writeSSEError(w)
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	w.Flush()
}

func writeSSEText(w *bufio.Writer, text string) {
	if text == "" {
		return
	}
	payload, _ := json.Marshal(fiber.Map{"text": text})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.Flush()
}

func writeSSEError(w *bufio.Writer) {
	payload, _ := json.Marshal(fiber.Map{"error": "Stream failed"})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.Flush()
}

func splitSubjects(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func queryInt(c *fiber.Ctx, key string, defaultValue int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return defaultValue
}
