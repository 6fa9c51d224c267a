package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catchup/internal/apperrors"
)

func TestSpeechValidation(t *testing.T) {
	svc := NewSpeechService(nil, nil)

	err := svc.Validate(&SpeechRequest{Text: ""})
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	if got := apperrors.ClientMessage(err, ""); got != "Text is required" {
		t.Errorf("client message = %q", got)
	}

	err = svc.Validate(&SpeechRequest{Text: strings.Repeat("a", MaxSpeechTextLen+1)})
	if err == nil {
		t.Fatal("expected error for oversized text")
	}
	if got := apperrors.ClientMessage(err, ""); got != "Text too long. Maximum 5000 characters." {
		t.Errorf("client message = %q", got)
	}

	if err := svc.Validate(&SpeechRequest{Text: strings.Repeat("a", MaxSpeechTextLen)}); err != nil {
		t.Errorf("text at the limit rejected: %v", err)
	}
}

func TestResolveControls(t *testing.T) {
	cases := []struct {
		name       string
		req        SpeechRequest
		wantSpeed  string
		wantSample string // one emotion descriptor that must be present
	}{
		{"empathetic default", SpeechRequest{Emotion: EmotionEmpathetic}, "normal", "positivity:low"},
		{"encouraging default", SpeechRequest{Emotion: EmotionEncouraging}, "normal", "positivity:high"},
		{"calm default", SpeechRequest{Emotion: EmotionCalm}, "slow", "anger:lowest"},
		{"slow override", SpeechRequest{Emotion: EmotionEncouraging, Speed: SpeedSlow}, "slow", "positivity:high"},
		{"fast override", SpeechRequest{Emotion: EmotionCalm, Speed: SpeedFast}, "fast", "anger:lowest"},
		{"unknown emotion falls back", SpeechRequest{Emotion: "furious"}, "normal", "positivity:low"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			speed, emotions := resolveControls(&tc.req)
			if speed != tc.wantSpeed {
				t.Errorf("speed = %q, want %q", speed, tc.wantSpeed)
			}
			found := false
			for _, e := range emotions {
				if e == tc.wantSample {
					found = true
				}
			}
			if !found {
				t.Errorf("emotions %v missing %q", emotions, tc.wantSample)
			}
		})
	}
}

func TestSynthesizeCachesResults(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/tts/bytes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Cartesia-Version") == "" {
			t.Error("missing Cartesia-Version header")
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Error("missing X-API-Key header")
		}

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["model_id"] != "sonic-2" {
			t.Errorf("model_id = %v", body["model_id"])
		}
		format := body["output_format"].(map[string]interface{})
		if format["container"] != "wav" || format["encoding"] != "pcm_f32le" {
			t.Errorf("output_format = %v", format)
		}

		w.Write([]byte("RIFF-fake-wav-bytes"))
	}))
	t.Cleanup(server.Close)

	svc := NewSpeechService(newTestProviders(server.URL), nil)
	req := &SpeechRequest{Text: "Take a deep breath.", Emotion: EmotionEmpathetic}

	first, err := svc.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("first Synthesize: %v", err)
	}
	second, err := svc.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("second Synthesize: %v", err)
	}

	if string(first) != "RIFF-fake-wav-bytes" || string(second) != string(first) {
		t.Error("unexpected audio payload")
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1 (cache miss then hit)", hits)
	}
}

func TestSynthesizeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	svc := NewSpeechService(newTestProviders(server.URL), nil)

	_, err := svc.Synthesize(context.Background(), &SpeechRequest{Text: "hello"})
	if err == nil {
		t.Fatal("expected error on upstream failure")
	}
	if apperrors.CategoryOf(err) != apperrors.CategoryDependency {
		t.Errorf("error category = %v, want dependency", apperrors.CategoryOf(err))
	}
	// Upstream detail must not reach clients
	if got := apperrors.ClientMessage(err, "Failed to generate speech"); got != "Failed to generate speech" {
		t.Errorf("client message leaks detail: %q", got)
	}
}

func TestSynthesizeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts/sse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		format := body["output_format"].(map[string]interface{})
		if format["container"] != "raw" {
			t.Errorf("stream container = %v, want raw", format["container"])
		}
		w.Write([]byte("pcm-chunk-1pcm-chunk-2"))
	}))
	t.Cleanup(server.Close)

	svc := NewSpeechService(newTestProviders(server.URL), nil)

	stream, err := svc.SynthesizeStream(context.Background(), &SpeechRequest{Text: "stream me"})
	if err != nil {
		t.Fatalf("SynthesizeStream: %v", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(data) != "pcm-chunk-1pcm-chunk-2" {
		t.Errorf("stream payload = %q", data)
	}
}
