package event

import (
	"strings"
	"time"

	"github.com/xraph/coalesce"
)

// Kind identifies the write shape of an event.
type Kind string

const (
	// KindIdentify upserts a user profile.
	KindIdentify Kind = "identify"
	// KindTrack records a named event a user performed.
	KindTrack Kind = "track"
	// KindGroup attaches a user to a company or account.
	KindGroup Kind = "group"
)

// DataType names an upstream bulk collection.
type DataType string

const (
	// DataTypeUsers is the collection of user profiles. Identify and
	// group writes both land here.
	DataTypeUsers DataType = "users"
	// DataTypeEvents is the collection of tracked events.
	DataTypeEvents DataType = "events"
)

// DataTypeFor returns the bulk collection an event kind writes to.
func DataTypeFor(k Kind) DataType {
	if k == KindTrack {
		return DataTypeEvents
	}
	return DataTypeUsers
}

// Event is the common interface of Identify, Track, and Group.
type Event interface {
	// Kind reports the write shape.
	Kind() Kind

	// UserKey returns the identity that scopes locking and coalescing:
	// the explicit user ID when present, otherwise the normalized
	// email. Returns coalesce.ErrMissingIdentity when neither is set.
	UserKey() (string, error)

	// Validate reports whether the event is complete enough to forward.
	Validate() error
}

// Identify upserts a user profile with the given traits.
type Identify struct {
	UserID    string         `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Traits    map[string]any `json:"traits,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Kind reports the write shape.
func (e *Identify) Kind() Kind { return KindIdentify }

// UserKey returns the identity used for lock and job key derivation.
func (e *Identify) UserKey() (string, error) { return userKey(e.UserID, e.Email) }

// Validate reports whether the event is complete enough to forward.
func (e *Identify) Validate() error {
	_, err := e.UserKey()
	return err
}

// Track records a named event a user performed, with free-form
// properties.
type Track struct {
	UserID     string         `json:"user_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Kind reports the write shape.
func (e *Track) Kind() Kind { return KindTrack }

// UserKey returns the identity used for lock and job key derivation.
func (e *Track) UserKey() (string, error) { return userKey(e.UserID, e.Email) }

// Validate reports whether the event is complete enough to forward.
func (e *Track) Validate() error {
	if _, err := e.UserKey(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Name) == "" {
		return coalesce.ErrMissingEventName
	}
	return nil
}

// Group attaches a user to a company, carrying company-level traits.
type Group struct {
	UserID    string         `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	GroupID   string         `json:"group_id"`
	Traits    map[string]any `json:"traits,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Kind reports the write shape.
func (e *Group) Kind() Kind { return KindGroup }

// UserKey returns the identity used for lock and job key derivation.
func (e *Group) UserKey() (string, error) { return userKey(e.UserID, e.Email) }

// Validate reports whether the event is complete enough to forward.
func (e *Group) Validate() error {
	if _, err := e.UserKey(); err != nil {
		return err
	}
	if strings.TrimSpace(e.GroupID) == "" {
		return coalesce.ErrMissingGroupID
	}
	return nil
}
