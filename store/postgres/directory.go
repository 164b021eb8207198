package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/coalesce/directory"
)

// Lookup returns the active record for key. Expired rows are filtered
// in SQL, so a stale row behaves exactly like a missing one.
func (s *Store) Lookup(ctx context.Context, key string) (*directory.Record, error) {
	var rec directory.Record
	err := s.pool.QueryRow(ctx, `
		SELECT job_id, expires_at
		FROM coalesce_directory
		WHERE key = $1 AND expires_at > NOW()`,
		key,
	).Scan(&rec.JobID, &rec.ExpiresAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coalesce/postgres: lookup %q: %w", key, err)
	}
	return &rec, nil
}

// Record unconditionally overwrites the record for key. A standing row
// is replaced whether or not it has expired: a fresh job supersedes a
// stale reference.
func (s *Store) Record(ctx context.Context, key, jobID string, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO coalesce_directory (key, job_id, expires_at, updated_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3), NOW())
		ON CONFLICT (key) DO UPDATE
		SET job_id = EXCLUDED.job_id,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()`,
		key, jobID, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("coalesce/postgres: record %q: %w", key, err)
	}
	return nil
}

// Clear removes the record for key. Absent keys are not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM coalesce_directory WHERE key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("coalesce/postgres: clear %q: %w", key, err)
	}
	return nil
}
