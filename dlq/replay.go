package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/gateway"
	"github.com/xraph/coalesce/id"
)

// Replay rebuilds the operation behind a DLQ entry and submits it
// through the write pipeline, then marks the entry as replayed. The
// rebuilt operation gets a fresh op id; its keys are re-derived from
// the persisted workspace/kind/user key, so the replay serializes and
// coalesces exactly like the original did.
func (s *Service) Replay(ctx context.Context, entryID id.ID) (*gateway.Job, error) {
	if s.submit == nil {
		return nil, fmt.Errorf("coalesce/dlq: replay unavailable: no submitter configured")
	}

	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}

	lockKey, jobKey := event.Keys(entry.Workspace, entry.Kind, entry.UserKey)
	op := &event.Operation{
		ID:        id.NewOpID(),
		Kind:      entry.Kind,
		DataType:  entry.DataType,
		Workspace: entry.Workspace,
		UserKey:   entry.UserKey,
		LockKey:   lockKey,
		JobKey:    jobKey,
		Items:     entry.Items,
		CreatedAt: time.Now().UTC(),
	}

	job, err := s.submit(ctx, op)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplayDLQ(ctx, entryID); err != nil {
		// The write already landed upstream. Surface the bookkeeping
		// failure without undoing it.
		return job, err
	}

	return job, nil
}
