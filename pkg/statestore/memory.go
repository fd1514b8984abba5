package statestore

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

type memClaim struct {
	owner     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store with the same expiry semantics as
// RedisStore. It backs tests and single-process development runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memEntry
	claims  map[string]memClaim
	now     func() time.Time
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memEntry),
		claims:  make(map[string]memClaim),
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(id string) (*memEntry, bool) {
	e, ok := s.records[id]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.records, id)
		return nil, false
	}
	return e, true
}

// CreateIfAbsent implements Store
func (s *MemoryStore) CreateIfAbsent(_ context.Context, id string, fields map[string]string, ttl time.Duration) (bool, error) {
	if len(fields) == 0 {
		return false, errors.New("no fields to write")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(id); ok {
		return false, nil
	}
	e := &memEntry{fields: make(map[string]string, len(fields)), expiresAt: s.now().Add(ttl)}
	for k, v := range fields {
		e.fields[k] = v
	}
	s.records[id] = e
	return true, nil
}

// CreateOrUpdate implements Store
func (s *MemoryStore) CreateOrUpdate(_ context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	return nil
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, id string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out, nil
}

// SetExpiry implements Store
func (s *MemoryStore) SetExpiry(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return ErrNotFound
	}
	e.expiresAt = s.now().Add(ttl)
	return nil
}

// DeleteFields implements Store
func (s *MemoryStore) DeleteFields(_ context.Context, id string, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return nil
	}
	for _, n := range names {
		delete(e.fields, n)
	}
	if len(e.fields) == 0 {
		delete(s.records, id)
	}
	return nil
}

// Claim implements Store
func (s *MemoryStore) Claim(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.claims[key]; ok && s.now().Before(c.expiresAt) {
		return false, nil
	}
	s.claims[key] = memClaim{owner: owner, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Release implements Store
func (s *MemoryStore) Release(_ context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.claims[key]; ok && c.owner == owner {
		delete(s.claims, key)
	}
	return nil
}

// Extend implements Store
func (s *MemoryStore) Extend(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[key]
	if !ok || c.owner != owner || !s.now().Before(c.expiresAt) {
		return false, nil
	}
	c.expiresAt = s.now().Add(ttl)
	s.claims[key] = c
	return true, nil
}

// Ping implements Store
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
