// Package store defines the aggregate persistence interface. Each subsystem
// (lock, directory, dlq) defines its own store interface. The composite
// Store composes them all. Backends: Postgres, Redis, Mongo, and Memory.
package store

import (
	"context"

	"github.com/xraph/coalesce/directory"
	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/lock"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, redis, mongo, memory) implements all of them.
type Store interface {
	lock.TryLocker
	directory.Directory
	dlq.Store

	// SweepExpired removes lock entries and directory records whose
	// expiry has passed, returning how many of each were removed.
	// Backends with native TTL eviction may return zeros.
	SweepExpired(ctx context.Context) (locks, records int, err error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
