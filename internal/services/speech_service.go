package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"catchup/internal/apperrors"

	gocache "github.com/patrickmn/go-cache"
)

// Speech emotion presets
const (
	EmotionEmpathetic  = "empathetic"
	EmotionEncouraging = "encouraging"
	EmotionCalm        = "calm"
)

// Speech speed settings
const (
	SpeedSlow   = "slow"
	SpeedNormal = "normal"
	SpeedFast   = "fast"
)

// MaxSpeechTextLen is the synthesis input ceiling
const MaxSpeechTextLen = 5000

const cartesiaVersion = "2024-06-10"

// speedBias maps caller-facing speed settings to the vendor bias scale
var speedBias = map[string]float64{
	SpeedSlow:   -0.2,
	SpeedNormal: 0,
	SpeedFast:   0.15,
}

type emotionPreset struct {
	speed    float64
	emotions []string
}

// emotionPresets carry a vendor speed bias plus emotion descriptors.
// Caller-supplied speed overrides the bias but never the descriptors.
var emotionPresets = map[string]emotionPreset{
	EmotionEmpathetic: {
		speed:    -0.1,
		emotions: []string{"positivity:low", "curiosity:medium"},
	},
	EmotionEncouraging: {
		speed:    0,
		emotions: []string{"positivity:high", "surprise:low"},
	},
	EmotionCalm: {
		speed:    -0.15,
		emotions: []string{"positivity:medium", "anger:lowest"},
	},
}

// SpeechRequest is one synthesis request
type SpeechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
	Speed   string `json:"speed,omitempty"`   // slow | normal | fast
	Emotion string `json:"emotion,omitempty"` // empathetic | encouraging | calm
}

// SpeechService synthesizes speech through the Cartesia TTS API
type SpeechService struct {
	providers  *ProviderService
	httpClient *http.Client
	audioCache *gocache.Cache
	metrics    *Metrics
}

// NewSpeechService creates a new speech service. Full-buffer results
// are cached for an hour keyed by the request hash.
func NewSpeechService(providers *ProviderService, metrics *Metrics) *SpeechService {
	return &SpeechService{
		providers: providers,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		audioCache: gocache.New(1*time.Hour, 10*time.Minute),
		metrics:    metrics,
	}
}

// Validate checks the synthesis input constraints
func (s *SpeechService) Validate(req *SpeechRequest) error {
	if req.Text == "" {
		return apperrors.Validation("Text is required")
	}
	if len(req.Text) > MaxSpeechTextLen {
		return apperrors.Validation("Text too long. Maximum %d characters.", MaxSpeechTextLen)
	}
	return nil
}

// resolveControls applies the emotion preset and the speed override rule
func resolveControls(req *SpeechRequest) (speedLabel string, emotions []string) {
	preset, ok := emotionPresets[req.Emotion]
	if !ok {
		preset = emotionPresets[EmotionEmpathetic]
	}

	bias := preset.speed
	if override, ok := speedBias[req.Speed]; ok && req.Speed != "" {
		bias = override
	}

	switch {
	case bias > 0:
		speedLabel = "fast"
	case bias < -0.1:
		speedLabel = "slow"
	default:
		speedLabel = "normal"
	}
	return speedLabel, preset.emotions
}

func (s *SpeechService) requestBody(req *SpeechRequest, voiceID, container, speedLabel string, emotions []string) map[string]interface{} {
	return map[string]interface{}{
		"model_id":   "sonic-2",
		"transcript": req.Text,
		"voice": map[string]interface{}{
			"mode": "id",
			"id":   voiceID,
			"__experimental_controls": map[string]interface{}{
				"speed":   speedLabel,
				"emotion": emotions,
			},
		},
		"output_format": outputFormat(container),
		"language":      "en",
	}
}

func outputFormat(container string) map[string]interface{} {
	return map[string]interface{}{
		"container":   container,
		"encoding":    "pcm_f32le",
		"sample_rate": 44100,
	}
}

func cacheKey(req *SpeechRequest, voiceID string) string {
	h := sha256.Sum256([]byte(req.Text + "|" + voiceID + "|" + req.Speed + "|" + req.Emotion))
	return hex.EncodeToString(h[:])
}

// Synthesize requests full-buffer synthesis and returns the complete
// WAV payload.
func (s *SpeechService) Synthesize(ctx context.Context, req *SpeechRequest) ([]byte, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	provider, err := s.providers.GetSpeechProvider()
	if err != nil {
		return nil, apperrors.Dependency("speech provider unavailable", err)
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = provider.VoiceID
	}

	key := cacheKey(req, voiceID)
	if cached, ok := s.audioCache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.SpeechCacheHits.Inc()
		}
		return cached.([]byte), nil
	}

	if s.metrics != nil {
		s.metrics.SpeechRequests.Inc()
	}

	speedLabel, emotions := resolveControls(req)
	body := s.requestBody(req, voiceID, "wav", speedLabel, emotions)

	audio, err := s.post(ctx, provider.BaseURL+"/tts/bytes", provider.APIKey, body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SpeechFailures.Inc()
		}
		return nil, err
	}

	s.audioCache.Set(key, audio, gocache.DefaultExpiration)
	log.Printf("🔊 [SPEECH] Synthesized %d chars -> %d bytes (emotion: %s, speed: %s)",
		len(req.Text), len(audio), req.Emotion, speedLabel)
	return audio, nil
}

// SynthesizeStream requests streaming synthesis and returns the live
// raw PCM body. The caller owns closing the stream.
func (s *SpeechService) SynthesizeStream(ctx context.Context, req *SpeechRequest) (io.ReadCloser, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	provider, err := s.providers.GetSpeechProvider()
	if err != nil {
		return nil, apperrors.Dependency("speech provider unavailable", err)
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = provider.VoiceID
	}

	if s.metrics != nil {
		s.metrics.SpeechRequests.Inc()
	}

	// Streaming always uses the preset speed; only the full-buffer
	// path honors the caller override, matching the vendor contract.
	_, emotions := resolveControls(&SpeechRequest{Emotion: req.Emotion})
	body := s.requestBody(req, voiceID, "raw", "normal", emotions)

	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", provider.BaseURL+"/tts/sse", bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(httpReq, provider.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SpeechFailures.Inc()
		}
		return nil, apperrors.Dependency("speech stream request failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		if s.metrics != nil {
			s.metrics.SpeechFailures.Inc()
		}
		return nil, apperrors.Dependency(
			fmt.Sprintf("speech API error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", truncate(string(respBody), 200)),
		)
	}

	return resp.Body, nil
}

func (s *SpeechService) post(ctx context.Context, url, apiKey string, body map[string]interface{}) ([]byte, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(httpReq, apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Dependency("speech request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.Dependency(
			fmt.Sprintf("speech API error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", truncate(string(respBody), 200)),
		)
	}

	return io.ReadAll(resp.Body)
}

func (s *SpeechService) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)
}
