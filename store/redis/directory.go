package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/coalesce/directory"
)

// Lookup returns the active record for key. Redis evicts records at
// their TTL, but the embedded expiry is still checked so a record a
// moment from eviction is never handed out.
func (s *Store) Lookup(ctx context.Context, key string) (*directory.Record, error) {
	raw, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coalesce/redis: lookup %q: %w", key, err)
	}

	rec, err := s.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("coalesce/redis: decode record %q: %w", key, err)
	}
	if rec.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return rec, nil
}

// Record unconditionally overwrites the record for key, with the Redis
// TTL matching the embedded expiry.
func (s *Store) Record(ctx context.Context, key, jobID string, ttl time.Duration) error {
	rec := &directory.Record{
		JobID:     jobID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	raw, err := s.codec.Encode(rec)
	if err != nil {
		return fmt.Errorf("coalesce/redis: encode record %q: %w", key, err)
	}
	if err := s.client.Set(ctx, recordKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("coalesce/redis: record %q: %w", key, err)
	}
	return nil
}

// Clear removes the record for key. Absent keys are not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, recordKey(key)).Err(); err != nil {
		return fmt.Errorf("coalesce/redis: clear %q: %w", key, err)
	}
	return nil
}
