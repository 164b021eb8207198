// Package directory defines the shared job directory: the mapping from
// a coalescing key to the currently open upstream bulk job. Backends
// live under store/; this package holds the contract, the record shape,
// and the TTL policy that keeps records expiring before their jobs
// close.
package directory

import (
	"context"
	"time"
)

// MinTTL is the floor applied to computed record TTLs. A job so close
// to closing that its margin-adjusted TTL would be zero or negative is
// recorded with this floor instead, so the write stays valid while the
// record still vanishes well before any realistic reuse.
const MinTTL = time.Second

// Record points at the currently open upstream job for one coalescing
// key. A record past its expiry is treated as absent even when still
// physically present.
type Record struct {
	JobID     string    `json:"job_id" msgpack:"job_id"`
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at"`
}

// Expired reports whether the record should be treated as absent.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Directory is the store contract for job records. Mutation happens
// only while holding the corresponding lock; the directory itself does
// no locking.
type Directory interface {
	// Lookup returns the active record for key, or (nil, nil) when no
	// record exists or the stored record has expired.
	Lookup(ctx context.Context, key string) (*Record, error)

	// Record unconditionally overwrites the record for key with a fresh
	// job id expiring at now + ttl. Overwrite semantics are required: a
	// fresh job supersedes a stale reference even when the old TTL has
	// not elapsed.
	Record(ctx context.Context, key, jobID string, ttl time.Duration) error

	// Clear removes the record for key. Absent keys are not an error.
	Clear(ctx context.Context, key string) error
}

// TTLFor computes the record TTL for a freshly opened job. When the
// upstream reported a closing time, the TTL runs to that time minus
// margin; otherwise it is the configured job window minus margin. The
// result never drops below MinTTL, so a record's TTL is always
// strictly shorter than its job's remaining life under any sane margin.
func TTLFor(closingAt, now time.Time, window, margin time.Duration) time.Duration {
	ttl := window - margin
	if !closingAt.IsZero() {
		ttl = closingAt.Sub(now) - margin
	}
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}
