package event

import (
	"time"

	"github.com/xraph/coalesce/id"
)

// MethodPost is the only bulk item method the pipeline produces.
const MethodPost = "post"

// Item is one line of an upstream bulk job.
type Item struct {
	Method   string         `json:"method"`
	DataType DataType       `json:"data_type"`
	Data     map[string]any `json:"data"`
}

// NewItem builds a post Item for the given collection.
func NewItem(dt DataType, data map[string]any) Item {
	return Item{Method: MethodPost, DataType: dt, Data: data}
}

// Operation describes one caller's request: the prepared items plus the
// keys that serialize and coalesce them. An Operation is owned by the
// coordinator call handling it, is never persisted, and is discarded
// once the caller has its result.
type Operation struct {
	ID        id.ID
	Kind      Kind
	DataType  DataType
	Workspace string
	UserKey   string
	LockKey   string
	JobKey    string
	Items     []Item
	CreatedAt time.Time
}

// NewOperation validates ev, derives its keys, and wraps the prepared
// items into an Operation ready for the coordinator.
func NewOperation(workspace string, ev Event, items []Item) (*Operation, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	key, err := ev.UserKey()
	if err != nil {
		return nil, err
	}
	lockKey, err := LockKeyFor(workspace, ev)
	if err != nil {
		return nil, err
	}
	jobKey, err := JobKeyFor(workspace, ev)
	if err != nil {
		return nil, err
	}
	return &Operation{
		ID:        id.NewOpID(),
		Kind:      ev.Kind(),
		DataType:  DataTypeFor(ev.Kind()),
		Workspace: workspace,
		UserKey:   key,
		LockKey:   lockKey,
		JobKey:    jobKey,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}, nil
}
