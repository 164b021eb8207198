package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/id"
)

// PushDLQ adds a failed write entry to the dead letter queue.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	items, err := json.Marshal(entry.Items)
	if err != nil {
		return fmt.Errorf("coalesce/postgres: marshal dlq items: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO coalesce_dlq (
			id, op_id, kind, data_type, workspace, user_key,
			items, error, failed_at, replayed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID.String(), entry.OpID.String(), string(entry.Kind),
		string(entry.DataType), entry.Workspace, entry.UserKey,
		items, entry.Error, entry.FailedAt, entry.ReplayedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("coalesce/postgres: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns DLQ entries matching the given options.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	query := `
		SELECT
			id, op_id, kind, data_type, workspace, user_key,
			items, error, failed_at, replayed_at, created_at
		FROM coalesce_dlq
		WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Workspace != "" {
		query += fmt.Sprintf(" AND workspace = $%d", argIdx)
		args = append(args, opts.Workspace)
		argIdx++
	}

	query += " ORDER BY failed_at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("coalesce/postgres: list dlq: %w", err)
	}
	defer rows.Close()

	var entries []*dlq.Entry
	for rows.Next() {
		e, scanErr := scanDLQ(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("coalesce/postgres: scan dlq row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("coalesce/postgres: iterate dlq rows: %w", err)
	}
	return entries, nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.ID) (*dlq.Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, op_id, kind, data_type, workspace, user_key,
			items, error, failed_at, replayed_at, created_at
		FROM coalesce_dlq
		WHERE id = $1`,
		entryID.String(),
	)

	e, err := scanDLQ(row)
	if err != nil {
		if isNoRows(err) {
			return nil, coalesce.ErrDLQNotFound
		}
		return nil, fmt.Errorf("coalesce/postgres: get dlq: %w", err)
	}
	return e, nil
}

// ReplayDLQ marks a DLQ entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.ID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE coalesce_dlq SET replayed_at = NOW() WHERE id = $1`,
		entryID.String(),
	)
	if err != nil {
		return fmt.Errorf("coalesce/postgres: replay dlq: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return coalesce.ErrDLQNotFound
	}
	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
// Returns the number of entries removed.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM coalesce_dlq WHERE failed_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("coalesce/postgres: purge dlq: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coalesce_dlq`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("coalesce/postgres: count dlq: %w", err)
	}
	return count, nil
}

// ── helpers ──

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDLQ(row rowScanner) (*dlq.Entry, error) {
	var (
		eID, opID      string
		kind, dataType string
		items          []byte
		e              dlq.Entry
	)
	err := row.Scan(
		&eID, &opID, &kind, &dataType, &e.Workspace, &e.UserKey,
		&items, &e.Error, &e.FailedAt, &e.ReplayedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.ID, err = id.Parse(eID); err != nil {
		return nil, fmt.Errorf("parse dlq id: %w", err)
	}
	if e.OpID, err = id.Parse(opID); err != nil {
		return nil, fmt.Errorf("parse dlq op id: %w", err)
	}
	e.Kind = event.Kind(kind)
	e.DataType = event.DataType(dataType)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &e.Items); err != nil {
			return nil, fmt.Errorf("unmarshal dlq items: %w", err)
		}
	}
	return &e, nil
}
