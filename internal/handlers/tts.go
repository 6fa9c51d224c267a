package handlers

import (
	"bufio"
	"io"
	"log"
	"strconv"

	"catchup/internal/apperrors"
	"catchup/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// TTSHandler handles direct speech synthesis requests
type TTSHandler struct {
	speech *services.SpeechService
}

// NewTTSHandler creates a new TTS handler
func NewTTSHandler(speech *services.SpeechService) *TTSHandler {
	return &TTSHandler{speech: speech}
}

// Synthesize returns either a complete WAV payload or a live chunked
// raw PCM stream, depending on the stream flag.
func (h *TTSHandler) Synthesize(c *fiber.Ctx) error {
	var body struct {
		Text    string `json:"text"`
		VoiceID string `json:"voiceId"`
		Speed   string `json:"speed"`
		Emotion string `json:"emotion"`
		Stream  bool   `json:"stream"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req := &services.SpeechRequest{
		Text:    body.Text,
		VoiceID: body.VoiceID,
		Speed:   body.Speed,
		Emotion: body.Emotion,
	}
	if req.Speed == "" {
		req.Speed = services.SpeedNormal
	}
	if req.Emotion == "" {
		req.Emotion = services.EmotionEmpathetic
	}

	if err := h.speech.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": apperrors.ClientMessage(err, "Invalid request"),
		})
	}

	if body.Stream {
		audioStream, err := h.speech.SynthesizeStream(c.Context(), req)
		if err != nil {
			log.Printf("❌ [TTS-API] Stream synthesis failed: %v", err)
			return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
				"error": "Failed to generate speech",
			})
		}

		c.Set("Content-Type", "audio/pcm")
		c.Set("Cache-Control", "no-cache")
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer audioStream.Close()
			if _, err := io.Copy(w, audioStream); err != nil {
				log.Printf("⚠️  [TTS-API] Audio stream interrupted: %v", err)
			}
			w.Flush()
		}))
		return nil
	}

	audio, err := h.speech.Synthesize(c.Context(), req)
	if err != nil {
		log.Printf("❌ [TTS-API] Synthesis failed: %v", err)
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": "Failed to generate speech",
		})
	}

	c.Set("Content-Type", "audio/wav")
	c.Set("Content-Length", strconv.Itoa(len(audio)))
	c.Set("Cache-Control", "public, max-age=3600")
	return c.Send(audio)
}
