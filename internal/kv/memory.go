package kv

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemory returns an in-process Store for embedding without Redis.
// Atomicity holds within a single process only; multi-instance
// deployments must use NewRedis.
func NewMemory() Store {
	return &memoryStore{entries: make(map[string]memEntry)}
}

func (s *memoryStore) live(key string) ([]byte, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		delete(s.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (s *memoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < minTTL {
		ttl = minTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *memoryStore) TakeAndDelete(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, key)
	return value, nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *memoryStore) CompareAndSwap(_ context.Context, key string, expect, next []byte, ttl time.Duration) (bool, error) {
	if ttl < minTTL {
		ttl = minTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.live(key)
	if !ok || !bytes.Equal(value, expect) {
		return false, nil
	}
	s.entries[key] = memEntry{
		value:     append([]byte(nil), next...),
		expiresAt: time.Now().Add(ttl),
	}
	return true, nil
}

func (s *memoryStore) CompareAndDelete(_ context.Context, key string, expect []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.live(key)
	if !ok || !bytes.Equal(value, expect) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}
