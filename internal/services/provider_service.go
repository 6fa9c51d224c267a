package services

import (
	"fmt"
	"log"
	"sync"

	"catchup/internal/config"
	"catchup/internal/models"
)

// ProviderService holds the active AI provider registry. Providers
// are deploy-time configuration: seeded from environment variables,
// optionally overridden by providers.json, hot-reloaded when that
// file changes.
type ProviderService struct {
	mu        sync.RWMutex
	providers []models.Provider
}

// NewProviderService seeds the registry from environment configuration
func NewProviderService(cfg *config.Config) *ProviderService {
	s := &ProviderService{}
	s.providers = defaultProviders(cfg)
	return s
}

func defaultProviders(cfg *config.Config) []models.Provider {
	return []models.Provider{
		{
			ID:      1,
			Name:    "Groq",
			Type:    models.ProviderCompletion,
			BaseURL: cfg.GroqBaseURL,
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.CompletionModel,
			Enabled: cfg.GroqAPIKey != "",
		},
		{
			ID:      2,
			Name:    "Cartesia",
			Type:    models.ProviderSpeech,
			BaseURL: cfg.CartesiaBaseURL,
			APIKey:  cfg.CartesiaAPIKey,
			VoiceID: cfg.CartesiaVoiceID,
			Enabled: cfg.CartesiaAPIKey != "",
		},
	}
}

// Reload replaces the registry from providers.json. Called at startup
// and by the file watcher on change; a bad file keeps the previous set.
func (s *ProviderService) Reload(filePath string) error {
	cfg, err := config.LoadProviders(filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.providers = cfg.Providers
	s.mu.Unlock()

	log.Printf("🔄 [PROVIDERS] Loaded %d providers from %s", len(cfg.Providers), filePath)
	return nil
}

// GetCompletionProvider returns the enabled completion provider
func (s *ProviderService) GetCompletionProvider() (*models.Provider, error) {
	return s.getByType(models.ProviderCompletion)
}

// GetSpeechProvider returns the enabled speech-synthesis provider
func (s *ProviderService) GetSpeechProvider() (*models.Provider, error) {
	return s.getByType(models.ProviderSpeech)
}

func (s *ProviderService) getByType(providerType string) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.providers {
		p := s.providers[i]
		if p.Type == providerType && p.Enabled {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("no enabled %s provider configured", providerType)
}
