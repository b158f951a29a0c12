package offline

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Response is a fully buffered HTTP response as stored in a Cache.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r Response) clone() Response {
	out := r
	out.Header = r.Header.Clone()
	out.Body = append([]byte(nil), r.Body...)
	return out
}

// HTTP renders r as an *http.Response answering req.
func (r Response) HTTP(req *http.Request) *http.Response {
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(r.Body)))

	return &http.Response{
		Status:        strconv.Itoa(r.Status) + " " + http.StatusText(r.Status),
		StatusCode:    r.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

// Cache maps request URLs to stored responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Response
}

func newCache() *Cache {
	return &Cache{entries: make(map[string]Response)}
}

// Match returns the stored response for key.
func (c *Cache) Match(key string) (Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resp, ok := c.entries[key]
	if !ok {
		return Response{}, false
	}
	return resp.clone(), true
}

// Put stores resp under key, replacing any previous entry.
func (c *Cache) Put(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resp.clone()
}

// Keys lists the stored keys in order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CacheStorage holds named caches.
type CacheStorage struct {
	mu     sync.RWMutex
	caches map[string]*Cache
}

func NewCacheStorage() *CacheStorage {
	return &CacheStorage{caches: make(map[string]*Cache)}
}

// Open returns the cache called name, creating it when missing.
func (s *CacheStorage) Open(name string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[name]
	if !ok {
		c = newCache()
		s.caches[name] = c
	}
	return c
}

// Delete removes the cache called name and reports whether it existed.
func (s *CacheStorage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.caches[name]
	delete(s.caches, name)
	return ok
}

// Names lists the cache names in order.
func (s *CacheStorage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.caches))
	for n := range s.caches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Match looks key up in every cache, in name order.
func (s *CacheStorage) Match(key string) (Response, bool) {
	for _, name := range s.Names() {
		s.mu.RLock()
		c := s.caches[name]
		s.mu.RUnlock()
		if c == nil {
			continue
		}
		if resp, ok := c.Match(key); ok {
			return resp, true
		}
	}
	return Response{}, false
}
