package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/coalesce/directory"
)

// Lookup returns the active record for key. Expired documents are
// filtered in the query, so a stale document reads as a miss.
func (s *Store) Lookup(ctx context.Context, key string) (*directory.Record, error) {
	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": now()},
	}

	var m recordModel
	err := s.db.Collection(colDirectory).FindOne(ctx, filter).Decode(&m)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coalesce/mongo: lookup %q: %w", key, err)
	}
	return &directory.Record{JobID: m.JobID, ExpiresAt: m.ExpiresAt}, nil
}

// Record unconditionally overwrites the record for key. A standing
// document is replaced whether or not it has expired: a fresh job
// supersedes a stale reference.
func (s *Store) Record(ctx context.Context, key, jobID string, ttl time.Duration) error {
	n := now()
	doc := recordModel{
		Key:       key,
		JobID:     jobID,
		ExpiresAt: n.Add(ttl),
		UpdatedAt: n,
	}

	_, err := s.db.Collection(colDirectory).ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("coalesce/mongo: record %q: %w", key, err)
	}
	return nil
}

// Clear removes the record for key. Absent keys are not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	_, err := s.db.Collection(colDirectory).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("coalesce/mongo: clear %q: %w", key, err)
	}
	return nil
}
