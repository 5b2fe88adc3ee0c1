package cache

import (
	"sync"
	"time"
)

// Store persists result payloads between calls. A Get on an expired or
// missing key reports found == false with a nil error.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte, ttl time.Duration) error
	Close() error
}

// DefaultMemoryCapacity bounds MemoryStore when no capacity is given.
const DefaultMemoryCapacity = 1024

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps payloads in process memory with LRU eviction and
// per-entry expiry.
type MemoryStore struct {
	entries *lru[memoryEntry]
	now     func() time.Time

	closeOnce sync.Once
}

// NewMemoryStore creates a MemoryStore holding at most capacity payloads.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		entries: newLRU[memoryEntry](capacity, nil),
		now:     time.Now,
	}
}

// WithClock replaces the time source used for expiry.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	entry, ok := s.entries.get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expires) {
		s.entries.remove(key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set implements Store. A non-positive ttl stores nothing.
func (s *MemoryStore) Set(key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.entries.set(key, memoryEntry{data: buf, expires: s.now().Add(ttl)})
	return nil
}

// Stats returns lookup statistics.
func (s *MemoryStore) Stats() Stats {
	return s.entries.stats()
}

// Close drops every entry.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(s.entries.purge)
	return nil
}
