package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/optilift/entitlements/internal/profile"
)

// MemoryStore is an in-memory profile store for tests and single-node use.
// It round-trips profiles through JSON so stored records are fully detached
// from caller-held pointers, matching the persistent store's semantics.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]byte)}
}

// Save upserts the profile document.
func (s *MemoryStore) Save(_ context.Context, p *profile.UserProfile) error {
	payload, errMarshal := json.Marshal(p)
	if errMarshal != nil {
		return errMarshal
	}
	s.mu.Lock()
	s.rows[p.ID] = payload
	s.mu.Unlock()
	return nil
}

// Insert stores a fresh profile, failing when one already exists.
func (s *MemoryStore) Insert(_ context.Context, p *profile.UserProfile) error {
	payload, errMarshal := json.Marshal(p)
	if errMarshal != nil {
		return errMarshal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.ID]; exists {
		return profile.ErrDuplicateKey
	}
	s.rows[p.ID] = payload
	return nil
}

// Get loads the profile for a user ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*profile.UserProfile, bool, error) {
	s.mu.RLock()
	payload, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	var p profile.UserProfile
	if errUnmarshal := json.Unmarshal(payload, &p); errUnmarshal != nil {
		return nil, false, nil
	}
	return &p, true, nil
}

var _ profile.Store = (*MemoryStore)(nil)
