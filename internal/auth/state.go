package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// StateStore manages CSRF state parameters and PKCE verifiers (simple in-memory)
type StateStore struct {
	states sync.Map // map[state]StateData
}

// NewStateStore creates a new state store
func NewStateStore() *StateStore {
	return &StateStore{}
}

// GenerateState returns a random CSRF state value
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// SaveWithVerifier stores a state with expiry and code verifier (for PKCE)
func (s *StateStore) SaveWithVerifier(state string, duration time.Duration, codeVerifier string) {
	s.states.Store(state, StateData{
		Expiry:       time.Now().Add(duration),
		CodeVerifier: codeVerifier,
	})
}

// VerifyAndGetVerifier checks and consumes a state, returning the code verifier
func (s *StateStore) VerifyAndGetVerifier(state string) (string, bool) {
	val, ok := s.states.LoadAndDelete(state) // One-time use
	if !ok {
		return "", false
	}

	data := val.(StateData)
	if time.Now().After(data.Expiry) {
		return "", false
	}
	return data.CodeVerifier, true
}

// StartCleanup drops expired states until ctx is done
func (s *StateStore) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.cleanup(now)
			}
		}
	}()
}

func (s *StateStore) cleanup(now time.Time) {
	s.states.Range(func(key, value any) bool {
		data := value.(StateData)
		if now.After(data.Expiry) {
			s.states.Delete(key)
		}
		return true
	})
}
