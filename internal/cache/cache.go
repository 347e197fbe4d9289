package cache

import (
	"context"
	"sync"
	"time"
)

// CodeStore keeps short-lived verification codes keyed by account.
type CodeStore interface {
	Set(ctx context.Context, key, code string, ttl time.Duration) error
	// Get returns the code and whether it is present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Fail records a wrong guess against the current code and returns how
	// many there have been since it was set. Without a code it returns 0.
	Fail(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	code      string
	expiresAt time.Time
	failures  int
}

// MemoryCodeStore is the process-local CodeStore used when Redis is not
// configured. Expiry is checked on read.
type MemoryCodeStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryCodeStore) Set(_ context.Context, key, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.code, true, nil
}

func (s *MemoryCodeStore) Fail(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}
	entry.failures++
	s.entries[key] = entry
	return entry.failures, nil
}

func (s *MemoryCodeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
