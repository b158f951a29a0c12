package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileEntry struct {
	Value   json.RawMessage `json:"value"`
	Expires *time.Time      `json:"expires,omitempty"`
}

// FileKV keeps all keys in one JSON file so the cache survives restarts.
type FileKV struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileKV stores values in path. The file is created on first write.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path, now: time.Now}
}

func (s *FileKV) load() (map[string]fileEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]fileEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	entries := map[string]fileEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	return entries, nil
}

func (s *FileKV) save(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.Expires != nil && !s.now().Before(*entry.Expires) {
		return nil, ErrNotFound
	}
	return []byte(entry.Value), nil
}

// Set stores value, which must be valid JSON.
func (s *FileKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		// A corrupt file is replaced rather than blocking every write.
		entries = map[string]fileEntry{}
	}

	entry := fileEntry{Value: append(json.RawMessage(nil), value...)}
	if ttl > 0 {
		exp := s.now().Add(ttl).UTC()
		entry.Expires = &exp
	}
	entries[key] = entry
	return s.save(entries)
}

func (s *FileKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(entries)
}

var _ KV = (*FileKV)(nil)
