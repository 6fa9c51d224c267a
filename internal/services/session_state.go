package services

import (
	"time"

	"catchup/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

// SessionState is the per-session view-state snapshot handed to
// handlers: the current onboarding answers, triage result, and plan.
// It replaces an ambient client-side global with an explicit
// session-scoped context object; the datastore stays authoritative.
type SessionState struct {
	Onboarding *models.Onboarding   `json:"onboarding,omitempty"`
	Triage     *models.TriageResult `json:"triage,omitempty"`
	Plan       *models.RecoveryPlan `json:"plan,omitempty"`
}

// SessionStateService holds session view state with a TTL
type SessionStateService struct {
	cache *gocache.Cache
}

// NewSessionStateService creates the view-state store (24h TTL)
func NewSessionStateService() *SessionStateService {
	return &SessionStateService{
		cache: gocache.New(24*time.Hour, 1*time.Hour),
	}
}

// Get returns the state for a session token, creating an empty one
func (s *SessionStateService) Get(sessionToken string) *SessionState {
	if cached, ok := s.cache.Get(sessionToken); ok {
		return cached.(*SessionState)
	}
	state := &SessionState{}
	s.cache.Set(sessionToken, state, gocache.DefaultExpiration)
	return state
}

// SetOnboarding records the current onboarding answers
func (s *SessionStateService) SetOnboarding(sessionToken string, ob *models.Onboarding) {
	state := s.Get(sessionToken)
	state.Onboarding = ob
	s.cache.Set(sessionToken, state, gocache.DefaultExpiration)
}

// SetTriage records the active triage result
func (s *SessionStateService) SetTriage(sessionToken string, triage *models.TriageResult) {
	state := s.Get(sessionToken)
	state.Triage = triage
	s.cache.Set(sessionToken, state, gocache.DefaultExpiration)
}

// SetPlan records the active plan
func (s *SessionStateService) SetPlan(sessionToken string, plan *models.RecoveryPlan) {
	state := s.Get(sessionToken)
	state.Plan = plan
	s.cache.Set(sessionToken, state, gocache.DefaultExpiration)
}

// Reset clears the session's view state. Explicit operation; nothing
// else ever drops state besides TTL expiry.
func (s *SessionStateService) Reset(sessionToken string) {
	s.cache.Delete(sessionToken)
}
