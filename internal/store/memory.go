package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryKV is a concurrency-safe in-memory KV.
type MemoryKV struct {
	mu sync.RWMutex

	data map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry
	return nil
}

func (s *MemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var _ KV = (*MemoryKV)(nil)
