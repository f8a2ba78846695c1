package settings

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"eta-moderator/internal/config"
	"eta-moderator/internal/storage"
)

var ErrUnauthorized = errors.New("unauthorized")

type Persister interface {
	Load(ctx context.Context, name string, v any) error
	Save(ctx context.Context, name string, v any) error
}

// Store owns the live settings document. Readers get copies; updates are
// persisted before they replace the in-memory value.
type Store struct {
	mu      sync.RWMutex
	persist Persister
	current config.Settings
}

// Open loads the persisted settings or creates them from seed. Fields absent
// from an older persisted document fall back to seed values.
func Open(ctx context.Context, persist Persister, seed config.Settings) (*Store, error) {
	current := seed.Clone()
	err := persist.Load(ctx, storage.DocConfig, &current)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		current = seed.Clone()
		if err := persist.Save(ctx, storage.DocConfig, current); err != nil {
			return nil, fmt.Errorf("create settings: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := current.Validate(); err != nil {
		return nil, err
	}
	return &Store{persist: persist, current: current.Clone()}, nil
}

func (s *Store) Get() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *Store) Redacted() config.Settings {
	return s.Get().Redacted()
}

// Authorize reports whether secret equals the configured admin password.
func (s *Store) Authorize(secret string) bool {
	s.mu.RLock()
	password := s.current.WebPassword
	s.mu.RUnlock()
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

// Update merges patch over the current settings when secret matches.
func (s *Store) Update(ctx context.Context, secret string, patch config.SettingsPatch) (config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.current.WebPassword)) != 1 {
		return config.Settings{}, ErrUnauthorized
	}
	next := s.current.Apply(patch)
	if err := next.Validate(); err != nil {
		return config.Settings{}, err
	}
	if err := s.persist.Save(ctx, storage.DocConfig, next); err != nil {
		return config.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.current = next
	return next.Clone(), nil
}
