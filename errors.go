package coalesce

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("coalesce: no store configured")
	ErrStoreClosed     = errors.New("coalesce: store closed")
	ErrMigrationFailed = errors.New("coalesce: migration failed")

	// Configuration errors.
	ErrNoGateway          = errors.New("coalesce: no gateway configured")
	ErrMissingCredentials = errors.New("coalesce: missing credentials")

	// Validation errors.
	ErrMissingIdentity  = errors.New("coalesce: missing identity: user id or email required")
	ErrMissingEventName = errors.New("coalesce: missing event name")
	ErrMissingGroupID   = errors.New("coalesce: missing group id")

	// Lock errors.
	ErrLockUnavailable = errors.New("coalesce: lock unavailable")

	// Throttle errors.
	ErrThrottled = errors.New("coalesce: throttled")

	// Not found errors.
	ErrDLQNotFound = errors.New("coalesce: dlq entry not found")

	// State errors.
	ErrAlreadyStarted = errors.New("coalesce: already started")
	ErrClosed         = errors.New("coalesce: closed")
)
