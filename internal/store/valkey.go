package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyKV persists values in a Valkey-compatible database.
type ValkeyKV struct {
	client valkey.Client
	prefix string
}

// NewValkeyKV constructs a KV backed by Valkey. Keys are namespaced by prefix.
func NewValkeyKV(client valkey.Client, prefix string) *ValkeyKV {
	if prefix == "" {
		prefix = "havet"
	}
	return &ValkeyKV{client: client, prefix: prefix}
}

func (s *ValkeyKV) key(k string) string {
	return s.prefix + ":" + k
}

func (s *ValkeyKV) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(s.key(key)).Build()
	payload, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (s *ValkeyKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	builder := s.client.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyKV) Delete(ctx context.Context, key string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
}

var _ KV = (*ValkeyKV)(nil)

func valkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendValkey = "valkey"
)

// Open builds the KV named by backend. An unreachable Valkey falls back to memory.
// The returned close function releases the backend.
func Open(ctx context.Context, backend, filePath, valkeyAddr string, logger *slog.Logger) (KV, func()) {
	switch backend {
	case BackendFile:
		logger.Info("result cache uses file backend", "path", filePath)
		return NewFileKV(filePath), func() {}
	case BackendValkey:
		opt, err := valkeyOptions(valkeyAddr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return NewMemoryKV(), func() {}
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return NewMemoryKV(), func() {}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
			return NewMemoryKV(), func() {}
		}
		logger.Info("result cache valkey store enabled", "addr", valkeyAddr)
		return NewValkeyKV(client, "havet"), client.Close
	default:
		return NewMemoryKV(), func() {}
	}
}
