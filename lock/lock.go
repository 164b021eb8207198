// Package lock defines the keyed exclusive lock that serializes
// outbound writes per user. Backends provide the atomic try/release
// primitive (TryLocker); Poller turns it into a blocking acquirer.
// The memory backend implements Locker natively with true FIFO
// handoff.
//
// Every acquisition carries a unique token and a TTL safety net: a
// holder that crashes without releasing self-expires within a bounded
// interval, and a release only removes the entry when the token still
// matches, so an expired-and-reacquired lock is never released by its
// previous holder.
package lock

import (
	"context"
	"time"

	"github.com/xraph/coalesce/id"
)

// Lease is proof of lock holdership for one key.
type Lease struct {
	// Key is the serialization domain the lease covers.
	Key string

	// Token uniquely identifies this holdership. Release is
	// compare-token-and-delete, making it safe after expiry.
	Token id.ID

	// TTL is the safety-net expiry the backing entry was stamped with.
	TTL time.Duration

	// AcquiredAt is when holdership was granted.
	AcquiredAt time.Time
}

// AcquireOptions bound an acquisition attempt.
type AcquireOptions struct {
	// TTL is the safety-net expiry for the lock entry. Required.
	TTL time.Duration

	// Wait bounds how long a contended acquisition keeps trying before
	// giving up with coalesce.ErrLockUnavailable. Zero means keep
	// trying until ctx is done.
	Wait time.Duration
}

// Locker grants exclusive holdership of named keys.
type Locker interface {
	// Acquire blocks until the key is granted, the wait budget runs
	// out, or ctx is done. Contending callers are safe: a key is never
	// double-granted.
	Acquire(ctx context.Context, key string, opts AcquireOptions) (*Lease, error)

	// Release relinquishes holdership. It is idempotent and
	// best-effort: releasing an expired or superseded lease is not an
	// error.
	Release(ctx context.Context, lease *Lease) error
}

// TryLocker is the atomic primitive shared-store backends implement.
type TryLocker interface {
	// TryAcquire attempts to take key with the given token and TTL in
	// one atomic step. It returns false when another holder is active.
	TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Release deletes the entry for key if its token still matches.
	// A missing or mismatched entry is not an error.
	Release(ctx context.Context, key, token string) error
}
