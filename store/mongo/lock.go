package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TryAcquire takes key in one conditional upsert. The filter matches
// only an expired document, so a live holder makes the replace fall
// through to an insert that the _id uniqueness constraint rejects --
// a duplicate key error here just means "held".
func (s *Store) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n := now()
	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lte": n},
	}
	doc := lockModel{
		Key:        key,
		Token:      token,
		ExpiresAt:  n.Add(ttl),
		AcquiredAt: n,
	}

	_, err := s.db.Collection(colLocks).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if isDuplicateKey(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("coalesce/mongo: try acquire %q: %w", key, err)
	}
	return true, nil
}

// Release deletes the entry for key if its token still matches. A
// missing or mismatched entry is not an error.
func (s *Store) Release(ctx context.Context, key, token string) error {
	_, err := s.db.Collection(colLocks).DeleteOne(ctx, bson.M{
		"_id":   key,
		"token": token,
	})
	if err != nil {
		return fmt.Errorf("coalesce/mongo: release %q: %w", key, err)
	}
	return nil
}
