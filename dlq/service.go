package dlq

import (
	"context"
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/gateway"
	"github.com/xraph/coalesce/id"
)

// Submitter re-submits a rebuilt operation through the write pipeline.
// The coordinator's Run satisfies it.
type Submitter func(ctx context.Context, op *event.Operation) (*gateway.Job, error)

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store  Store
	submit Submitter
}

// NewService creates a DLQ service. submit may be nil when replay is
// not needed (inspection-only deployments).
func NewService(store Store, submit Submitter) *Service {
	return &Service{store: store, submit: submit}
}

// Push builds a DLQ Entry from a terminally failed operation and
// persists it. The error string is captured from the upstream error.
func (s *Service) Push(ctx context.Context, op *event.Operation, opErr error) error {
	now := time.Now().UTC()
	entry := &Entry{
		ID:        id.NewDLQID(),
		OpID:      op.ID,
		Kind:      op.Kind,
		DataType:  op.DataType,
		Workspace: op.Workspace,
		UserKey:   op.UserKey,
		Items:     op.Items,
		Error:     opErr.Error(),
		FailedAt:  now,
		CreatedAt: now,
	}
	return s.store.PushDLQ(ctx, entry)
}

// DLQStore returns the underlying DLQ store for direct access
// to List, Get, Purge, and Count operations.
func (s *Service) DLQStore() Store {
	return s.store
}
