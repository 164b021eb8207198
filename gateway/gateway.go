package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/coalesce/event"
)

// Job describes an open upstream bulk job.
type Job struct {
	// ID is the upstream's identifier for the job. Opaque; never minted
	// locally.
	ID string

	// AppID is the upstream application the job belongs to.
	AppID string

	// State is the upstream's reported job state ("pending", "running",
	// "completed").
	State string

	// ClosingAt is the upstream's reported closing time for the job.
	// Zero when the upstream did not report one.
	ClosingAt time.Time
}

// Response is the upstream's reply to a single-record write.
type Response struct {
	StatusCode int
	Body       map[string]any
}

// APIError is a non-2xx reply from the upstream.
type APIError struct {
	StatusCode int
	RequestID  string
	Body       string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("coalesce/gateway: upstream returned %d (request %s): %s", e.StatusCode, e.RequestID, e.Body)
	}
	return fmt.Sprintf("coalesce/gateway: upstream returned %d: %s", e.StatusCode, e.Body)
}

// Gateway executes writes against the upstream. Bulk mode opens and
// extends short-lived jobs; single mode writes records directly.
type Gateway interface {
	// CreateJob opens a new bulk job seeded with the given items.
	CreateJob(ctx context.Context, dt event.DataType, items []event.Item) (*Job, error)

	// AppendJob adds items to an existing bulk job.
	AppendJob(ctx context.Context, dt event.DataType, jobID string, items []event.Item) (*Job, error)

	// SaveUser writes one user profile directly (single-record mode).
	SaveUser(ctx context.Context, data map[string]any) (*Response, error)

	// TrackEvent writes one event directly (single-record mode).
	TrackEvent(ctx context.Context, data map[string]any) (*Response, error)
}
