package postgres

import (
	"context"
	"fmt"
	"time"
)

// TryAcquire takes key in one atomic upsert. The insert wins when no
// row exists; the conflict update wins only when the standing row has
// expired, so a live holder is never displaced. All expiry arithmetic
// runs on the database clock.
func (s *Store) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO coalesce_locks (key, token, expires_at, acquired_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3), NOW())
		ON CONFLICT (key) DO UPDATE
		SET token = EXCLUDED.token,
		    expires_at = EXCLUDED.expires_at,
		    acquired_at = NOW()
		WHERE coalesce_locks.expires_at <= NOW()`,
		key, token, ttl.Seconds(),
	)
	if err != nil {
		return false, fmt.Errorf("coalesce/postgres: try acquire %q: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release deletes the entry for key if its token still matches. A
// missing or mismatched entry is not an error.
func (s *Store) Release(ctx context.Context, key, token string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM coalesce_locks WHERE key = $1 AND token = $2`,
		key, token,
	)
	if err != nil {
		return fmt.Errorf("coalesce/postgres: release %q: %w", key, err)
	}
	return nil
}
