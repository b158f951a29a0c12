package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/i474232898/havet-arena/internal/bathing"
)

const (
	// CurrentCacheVersion must change whenever the shape of ReconciliationResult
	// or the fetch pipeline changes, so old envelopes are ignored.
	CurrentCacheVersion = 7
	// DefaultCacheKey is the key the envelope is stored under.
	DefaultCacheKey = "havet_arena_data"
	// DefaultCacheDuration is how long a stored result stays fresh.
	DefaultCacheDuration = time.Hour
)

// CacheEnvelope pairs a result with the time it was stored and the schema version.
type CacheEnvelope struct {
	Data      bathing.ReconciliationResult `json:"data"`
	Timestamp int64                        `json:"timestamp"`
	Version   int                          `json:"version"`
}

// ResultCache implements bathing.ResultCache on top of a KV.
type ResultCache struct {
	kv       KV
	key      string
	duration time.Duration
	debug    bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewResultCache creates a cache. With debug set both Load and Store are skipped.
func NewResultCache(kv KV, key string, duration time.Duration, debug bool, logger *slog.Logger) *ResultCache {
	if key == "" {
		key = DefaultCacheKey
	}
	if duration <= 0 {
		duration = DefaultCacheDuration
	}
	return &ResultCache{
		kv:       kv,
		key:      key,
		duration: duration,
		debug:    debug,
		now:      time.Now,
		logger:   logger.With("component", "store.cache"),
	}
}

// Load returns the cached result when an envelope exists, parses, is younger than
// the cache duration and carries the current version.
func (c *ResultCache) Load(ctx context.Context) (bathing.ReconciliationResult, bool) {
	if c.debug {
		return bathing.ReconciliationResult{}, false
	}

	raw, err := c.kv.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("could not read result cache", "error", err)
		}
		return bathing.ReconciliationResult{}, false
	}

	var env CacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Debug("ignoring unparsable cache entry", "error", err)
		return bathing.ReconciliationResult{}, false
	}

	age := c.now().UnixMilli() - env.Timestamp
	if age >= c.duration.Milliseconds() {
		c.logger.Debug("cache entry is stale", "age_ms", age)
		return bathing.ReconciliationResult{}, false
	}
	if env.Version != CurrentCacheVersion {
		c.logger.Debug("cache entry has another version", "version", env.Version, "want", CurrentCacheVersion)
		return bathing.ReconciliationResult{}, false
	}

	return env.Data, true
}

// Store persists result in a fresh envelope. Failures are logged and dropped.
func (c *ResultCache) Store(ctx context.Context, result bathing.ReconciliationResult) {
	if c.debug {
		return
	}

	raw, err := json.Marshal(CacheEnvelope{
		Data:      result,
		Timestamp: c.now().UnixMilli(),
		Version:   CurrentCacheVersion,
	})
	if err != nil {
		c.logger.Warn("could not encode result cache", "error", err)
		return
	}

	if err := c.kv.Set(ctx, c.key, raw, c.duration); err != nil {
		c.logger.Warn("could not save result cache", "error", err)
	}
}

var _ bathing.ResultCache = (*ResultCache)(nil)
