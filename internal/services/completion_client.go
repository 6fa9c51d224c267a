package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"catchup/internal/apperrors"

	"golang.org/x/time/rate"
)

// CompletionOptions tune a single completion call
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool // request response_format {"type": "json_object"}
}

// CompletionClient calls an OpenAI-compatible /chat/completions API
type CompletionClient struct {
	providers  *ProviderService
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *Metrics
}

// NewCompletionClient creates a completion client paced at ratePerSecond
func NewCompletionClient(providers *ProviderService, ratePerSecond float64, metrics *Metrics) *CompletionClient {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &CompletionClient{
		providers: providers,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // LLM responses can take a while
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond*2)),
		metrics: metrics,
	}
}

// Complete performs a synchronous (non-streaming) chat completion and
// returns the first choice's content. Empty content is a generation error.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	provider, err := c.providers.GetCompletionProvider()
	if err != nil {
		return "", apperrors.Dependency("completion provider unavailable", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperrors.Dependency("completion rate limiter", err)
	}

	reqBody := map[string]interface{}{
		"model": provider.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
		"stream":      false,
	}
	if opts.JSONMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", provider.BaseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Dependency("completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperrors.Dependency(
			fmt.Sprintf("completion API error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", truncate(string(body), 200)),
		)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Generation("failed to decode completion response", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", apperrors.Generation("no content in completion response", nil)
	}

	content := result.Choices[0].Message.Content
	if c.metrics != nil {
		c.metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	}
	log.Printf("🤖 [COMPLETION] %s responded in %v (%d chars)", provider.Name, time.Since(start).Round(time.Millisecond), len(content))

	return content, nil
}

// Stream performs a streaming chat completion, invoking onChunk for
// each content delta until the [DONE] marker. The first upstream
// failure aborts the stream and is returned to the caller.
func (c *CompletionClient) Stream(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions, onChunk func(text string)) error {
	provider, err := c.providers.GetCompletionProvider()
	if err != nil {
		return apperrors.Dependency("completion provider unavailable", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Dependency("completion rate limiter", err)
	}

	reqBody := map[string]interface{}{
		"model": provider.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
		"stream":      true,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", provider.BaseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Dependency("completion stream request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apperrors.Dependency(
			fmt.Sprintf("completion API error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", truncate(string(body), 200)),
		)
	}

	return c.processStream(resp.Body, onChunk)
}

// processStream parses the SSE stream from the completion provider
func (c *CompletionClient) processStream(reader io.Reader, onChunk func(text string)) error {
	scanner := bufio.NewScanner(reader)

	// Increase buffer to 1MB for large SSE chunks (default is 64KB)
	const maxCapacity = 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 6 || line[:6] != "data: " {
			continue
		}

		data := line[6:]
		if data == "[DONE]" {
			return nil
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onChunk(chunk.Choices[0].Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return apperrors.Dependency("completion stream read failed", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
