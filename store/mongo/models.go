package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/id"
)

// ── Lock model ────────────────────────────────────────────────────

type lockModel struct {
	Key        string    `bson:"_id"`
	Token      string    `bson:"token"`
	ExpiresAt  time.Time `bson:"expires_at"`
	AcquiredAt time.Time `bson:"acquired_at"`
}

// ── Directory model ───────────────────────────────────────────────

type recordModel struct {
	Key       string    `bson:"_id"`
	JobID     string    `bson:"job_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ── DLQ model ─────────────────────────────────────────────────────

// dlqEntryModel stores the entry's items as a JSON blob so free-form
// payload keys never fight bson field-name rules.
type dlqEntryModel struct {
	ID         string     `bson:"_id"`
	OpID       string     `bson:"op_id"`
	Kind       string     `bson:"kind"`
	DataType   string     `bson:"data_type"`
	Workspace  string     `bson:"workspace"`
	UserKey    string     `bson:"user_key"`
	Items      []byte     `bson:"items"`
	Error      string     `bson:"error"`
	FailedAt   time.Time  `bson:"failed_at"`
	ReplayedAt *time.Time `bson:"replayed_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at"`
}

func toDLQModel(e *dlq.Entry) (*dlqEntryModel, error) {
	items, err := json.Marshal(e.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	return &dlqEntryModel{
		ID:         e.ID.String(),
		OpID:       e.OpID.String(),
		Kind:       string(e.Kind),
		DataType:   string(e.DataType),
		Workspace:  e.Workspace,
		UserKey:    e.UserKey,
		Items:      items,
		Error:      e.Error,
		FailedAt:   e.FailedAt,
		ReplayedAt: e.ReplayedAt,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func fromDLQModel(m *dlqEntryModel) (*dlq.Entry, error) {
	entryID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse dlq id %q: %w", m.ID, err)
	}
	opID, err := id.ParseOpID(m.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op id %q: %w", m.OpID, err)
	}

	var items []event.Item
	if len(m.Items) > 0 {
		if err := json.Unmarshal(m.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}

	return &dlq.Entry{
		ID:         entryID,
		OpID:       opID,
		Kind:       event.Kind(m.Kind),
		DataType:   event.DataType(m.DataType),
		Workspace:  m.Workspace,
		UserKey:    m.UserKey,
		Items:      items,
		Error:      m.Error,
		FailedAt:   m.FailedAt,
		ReplayedAt: m.ReplayedAt,
		CreatedAt:  m.CreatedAt,
	}, nil
}
