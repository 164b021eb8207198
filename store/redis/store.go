// Package redis implements store.Store using Redis. Locks are plain
// keys written with SET NX PX and released through a compare-token
// Lua script, directory records are codec-encoded values with native
// TTLs, and DLQ entries are stored as Redis Hashes.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/coalesce/codec"
	"github.com/xraph/coalesce/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCodec sets the directory record codec. Defaults to msgpack.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client redis.Cmdable
	codec  codec.Codec
	logger *slog.Logger
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		codec:  codec.GetCodec(codec.CodecNameMsgpack),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.Cmdable { return s.client }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op — the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }

// SweepExpired is a no-op: lock and directory keys carry native Redis
// TTLs and evict themselves.
func (s *Store) SweepExpired(_ context.Context) (locks, records int, err error) {
	return 0, 0, nil
}
