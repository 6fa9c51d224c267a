package models

// Provider kinds
const (
	ProviderCompletion = "completion"
	ProviderSpeech     = "speech"
)

// Provider represents an AI API provider (Groq, Cartesia, ...)
type Provider struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // completion | speech
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key,omitempty"` // Omit from responses for security
	Model   string `json:"model,omitempty"`
	VoiceID string `json:"voice_id,omitempty"` // Speech providers only
	Enabled bool   `json:"enabled"`
}

// ProvidersConfig is the providers.json file shape
type ProvidersConfig struct {
	Providers []Provider `json:"providers"`
}
