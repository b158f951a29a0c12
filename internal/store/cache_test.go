package store

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/logger"
)

func sampleResult() bathing.ReconciliationResult {
	v := 1500.0
	return bathing.Reconcile(bathing.WeeklyDataset{
		40: {Value: bathing.WeekValue{Number: &[]float64{200}[0]}},
		41: {Value: bathing.WeekValue{Number: &v}, Raw: "1500"},
	}, bathing.WeekYear{Week: 41, Year: 2025})
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(kv KV, debug bool) (*ResultCache, *clock) {
	c := &clock{t: time.Date(2025, time.October, 9, 12, 0, 0, 0, time.UTC)}
	cache := NewResultCache(kv, "", time.Hour, debug, logger.Discard())
	cache.now = c.now
	return cache, c
}

func TestResultCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(NewMemoryKV(), false)
	ctx := context.Background()

	_, ok := cache.Load(ctx)
	require.False(t, ok)

	want := sampleResult()
	cache.Store(ctx, want)

	got, ok := cache.Load(ctx)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestResultCacheStaleEntryIsMiss(t *testing.T) {
	kv := NewMemoryKV()
	cache, clk := newTestCache(kv, false)
	ctx := context.Background()

	cache.Store(ctx, sampleResult())

	clk.t = clk.t.Add(59 * time.Minute)
	_, ok := cache.Load(ctx)
	require.True(t, ok)

	clk.t = clk.t.Add(time.Minute)
	_, ok = cache.Load(ctx)
	require.False(t, ok)
}

func TestResultCacheVersionMismatchIsMiss(t *testing.T) {
	kv := NewMemoryKV()
	cache, clk := newTestCache(kv, false)
	ctx := context.Background()

	old := []byte(`{"data":{"value":12,"searchedWeek":41,"availableWeeks":[41],"match":"exact"},"timestamp":` +
		strconv.FormatInt(clk.t.UnixMilli(), 10) + `,"version":6}`)
	require.NoError(t, kv.Set(ctx, DefaultCacheKey, old, 0))

	_, ok := cache.Load(ctx)
	require.False(t, ok)
}

func TestResultCacheUnparsableIsMiss(t *testing.T) {
	kv := NewMemoryKV()
	cache, _ := newTestCache(kv, false)
	require.NoError(t, kv.Set(context.Background(), DefaultCacheKey, []byte("{not json"), 0))

	_, ok := cache.Load(context.Background())
	require.False(t, ok)
}

func TestResultCacheDebugBypasses(t *testing.T) {
	kv := NewMemoryKV()
	cache, _ := newTestCache(kv, true)
	ctx := context.Background()

	cache.Store(ctx, sampleResult())
	_, err := kv.Get(ctx, DefaultCacheKey)
	require.ErrorIs(t, err, ErrNotFound)

	normal, _ := newTestCache(kv, false)
	normal.Store(ctx, sampleResult())
	_, ok := cache.Load(ctx)
	require.False(t, ok)
}

type failingKV struct{}

func (failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (failingKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("quota exceeded")
}

func (failingKV) Delete(ctx context.Context, key string) error { return nil }

func TestResultCacheSwallowsBackendFailures(t *testing.T) {
	cache, _ := newTestCache(failingKV{}, false)

	require.NotPanics(t, func() { cache.Store(context.Background(), sampleResult()) })
	_, ok := cache.Load(context.Background())
	require.False(t, ok)
}
