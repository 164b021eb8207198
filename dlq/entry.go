package dlq

import (
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/id"
)

// Entry represents a write that failed terminally at the upstream and
// was captured for inspection or replay.
type Entry struct {
	ID         id.ID          `json:"id"`
	OpID       id.ID          `json:"op_id"`
	Kind       event.Kind     `json:"kind"`
	DataType   event.DataType `json:"data_type"`
	Workspace  string         `json:"workspace"`
	UserKey    string         `json:"user_key"`
	Items      []event.Item   `json:"items"`
	Error      string         `json:"error"`
	FailedAt   time.Time      `json:"failed_at"`
	ReplayedAt *time.Time     `json:"replayed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
