package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/id"
)

// PushDLQ adds a failed write entry to the dead letter queue.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	eID := entry.ID.String()

	m, err := dlqToMap(entry)
	if err != nil {
		return fmt.Errorf("coalesce/redis: push dlq: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, dlqKey(eID), m)
	pipe.SAdd(ctx, dlqIDsKey, eID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("coalesce/redis: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns DLQ entries matching the given options.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	ids, err := s.client.SMembers(ctx, dlqIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("coalesce/redis: list dlq: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(ids))
	for _, eID := range ids {
		vals, getErr := s.client.HGetAll(ctx, dlqKey(eID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		e, convErr := mapToDLQ(vals)
		if convErr != nil {
			continue
		}
		if opts.Workspace != "" && e.Workspace != opts.Workspace {
			continue
		}
		entries = append(entries, e)
	}

	sortByFailedAt(entries)

	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return nil, nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.ID) (*dlq.Entry, error) {
	vals, err := s.client.HGetAll(ctx, dlqKey(entryID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("coalesce/redis: get dlq: %w", err)
	}
	if len(vals) == 0 {
		return nil, coalesce.ErrDLQNotFound
	}
	return mapToDLQ(vals)
}

// ReplayDLQ marks a DLQ entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.ID) error {
	key := dlqKey(entryID.String())
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("coalesce/redis: replay dlq exists: %w", err)
	}
	if exists == 0 {
		return coalesce.ErrDLQNotFound
	}

	_, err = s.client.HSet(ctx, key,
		"replayed_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Result()
	if err != nil {
		return fmt.Errorf("coalesce/redis: replay dlq: %w", err)
	}
	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.client.SMembers(ctx, dlqIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("coalesce/redis: purge dlq smembers: %w", err)
	}

	var purged int64
	for _, eID := range ids {
		key := dlqKey(eID)
		failedAtStr, getErr := s.client.HGet(ctx, key, "failed_at").Result()
		if getErr != nil {
			if errors.Is(getErr, goredis.Nil) {
				continue
			}
			return purged, fmt.Errorf("coalesce/redis: purge dlq get: %w", getErr)
		}

		failedAt, _ := time.Parse(time.RFC3339Nano, failedAtStr) //nolint:errcheck // best-effort parse from trusted Redis data
		if failedAt.Before(before) {
			pipe := s.client.TxPipeline()
			pipe.Del(ctx, key)
			pipe.SRem(ctx, dlqIDsKey, eID)
			if _, pErr := pipe.Exec(ctx); pErr != nil {
				return purged, fmt.Errorf("coalesce/redis: purge dlq del: %w", pErr)
			}
			purged++
		}
	}
	return purged, nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.client.SCard(ctx, dlqIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("coalesce/redis: count dlq: %w", err)
	}
	return count, nil
}

// ── helpers ──

// sortByFailedAt orders entries oldest first. SMembers returns ids in
// arbitrary order, so listing sorts explicitly.
func sortByFailedAt(entries []*dlq.Entry) {
	sort.Slice(entries, func(i, k int) bool {
		return entries[i].FailedAt.Before(entries[k].FailedAt)
	})
}

func dlqToMap(e *dlq.Entry) (map[string]any, error) {
	items, err := json.Marshal(e.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	m := map[string]any{
		"id":         e.ID.String(),
		"op_id":      e.OpID.String(),
		"kind":       string(e.Kind),
		"data_type":  string(e.DataType),
		"workspace":  e.Workspace,
		"user_key":   e.UserKey,
		"items":      string(items),
		"error":      e.Error,
		"failed_at":  e.FailedAt.Format(time.RFC3339Nano),
		"created_at": e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.ReplayedAt != nil {
		m["replayed_at"] = e.ReplayedAt.Format(time.RFC3339Nano)
	}
	return m, nil
}

func mapToDLQ(vals map[string]string) (*dlq.Entry, error) {
	eID, err := id.Parse(vals["id"])
	if err != nil {
		return nil, fmt.Errorf("coalesce/redis: parse dlq id: %w", err)
	}
	opID, err := id.Parse(vals["op_id"])
	if err != nil {
		return nil, fmt.Errorf("coalesce/redis: parse dlq op id: %w", err)
	}

	var items []event.Item
	if raw := vals["items"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("coalesce/redis: unmarshal dlq items: %w", err)
		}
	}

	e := &dlq.Entry{
		ID:        eID,
		OpID:      opID,
		Kind:      event.Kind(vals["kind"]),
		DataType:  event.DataType(vals["data_type"]),
		Workspace: vals["workspace"],
		UserKey:   vals["user_key"],
		Items:     items,
		Error:     vals["error"],
	}
	e.FailedAt, _ = time.Parse(time.RFC3339Nano, vals["failed_at"])   //nolint:errcheck // best-effort parse from trusted Redis data
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, vals["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	if raw, ok := vals["replayed_at"]; ok && raw != "" {
		if at, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			e.ReplayedAt = &at
		}
	}
	return e, nil
}
