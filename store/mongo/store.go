package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/coalesce/store"
)

// Collection name constants.
const (
	colLocks     = "coalesce_locks"
	colDirectory = "coalesce_directory"
	colDLQ       = "coalesce_dlq"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of store.Store. Locks use
// conditional upserts whose filters only match expired documents, so
// acquisition rides on the server's duplicate-key guarantee.
//
// The caller owns the *mongo.Client lifecycle; Store never closes it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new MongoDB store on the given database. The caller
// owns the client lifecycle -- the Store will not close it on Close().
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *mongo.Database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

// Migrate creates indexes for all coalesce collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}

		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("coalesce/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// SweepExpired deletes expired lock entries and directory records.
func (s *Store) SweepExpired(ctx context.Context) (locks, records int, err error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now()}}

	lockRes, err := s.db.Collection(colLocks).DeleteMany(ctx, filter)
	if err != nil {
		return 0, 0, fmt.Errorf("coalesce/mongo: sweep locks: %w", err)
	}

	recRes, err := s.db.Collection(colDirectory).DeleteMany(ctx, filter)
	if err != nil {
		return int(lockRes.DeletedCount), 0, fmt.Errorf("coalesce/mongo: sweep directory: %w", err)
	}

	return int(lockRes.DeletedCount), int(recRes.DeletedCount), nil
}

// ── helpers ──────────────────────────────────────────────────────

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "E11000")
}

// migrationIndexes returns the index definitions for all coalesce collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colLocks: {
			// Expiry index for sweeping.
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colDirectory: {
			// Expiry index for lookups and sweeping.
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colDLQ: {
			{Keys: bson.D{
				{Key: "workspace", Value: 1},
				{Key: "failed_at", Value: -1},
			}},
			{Keys: bson.D{{Key: "failed_at", Value: 1}}},
		},
	}
}
