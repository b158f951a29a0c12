package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key holds no value.
	ErrNotFound = errors.New("not found")
)

// KV is the byte-level storage the result cache persists its envelope in.
// A ttl of zero keeps the value until it is overwritten.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
