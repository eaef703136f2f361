package cache

import (
	"context"
	"sync"

	"github.com/pumpfest/crux/pkg/metrics"
)

// memoryEntry pairs a payload with its put sequence for recency-based
// eviction.
type memoryEntry struct {
	payload []byte
	seq     uint64
}

// MemoryStore is the in-process cache tier: a mutex-guarded map with an
// optional bound evicted by oldest put.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	seq        uint64
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the tier; zero or negative means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxEntries = n
	}
}

// NewMemoryStore creates an empty in-memory tier.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]memoryEntry)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the payload for key if present.
func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Put stores the payload, evicting the oldest put when bounded and full.
func (s *MemoryStore) Put(_ context.Context, key Key, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded := key.String()
	if _, exists := s.entries[encoded]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.seq++
	s.entries[encoded] = memoryEntry{payload: payload, seq: s.seq}
	return nil
}

// Evict removes a single entry if present.
func (s *MemoryStore) Evict(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

// Clear removes every entry belonging to one competition.
func (s *MemoryStore) Clear(_ context.Context, competitionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for encoded := range s.entries {
		if HasPrefix(encoded, competitionID) {
			delete(s.entries, encoded)
		}
	}
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictOldest drops the entry with the lowest put sequence. Caller
// holds the write lock.
func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for encoded, e := range s.entries {
		if first || e.seq < oldestSeq {
			oldestKey = encoded
			oldestSeq = e.seq
			first = false
		}
	}
	if !first {
		delete(s.entries, oldestKey)
		metrics.RecordCacheEviction(TierMemory)
	}
}
