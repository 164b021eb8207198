package event

import (
	"strings"

	"github.com/xraph/coalesce"
)

// userKey picks the identity for key derivation: the explicit user ID,
// or the normalized email when no ID is present.
func userKey(userID, email string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		return email, nil
	}
	return "", coalesce.ErrMissingIdentity
}

// Keys derives the lock and job keys for a (workspace, kind, userKey)
// triple. Used directly when rebuilding an operation from persisted
// parts; live events go through LockKeyFor/JobKeyFor.
func Keys(workspace string, kind Kind, userKey string) (lockKey, jobKey string) {
	lockKey = workspace + ":" + userKey
	if kind == KindGroup {
		lockKey += ":groups"
	}
	jobKey = workspace + ":" + string(DataTypeFor(kind)) + ":" + userKey
	return lockKey, jobKey
}

// LockKeyFor returns the mutual-exclusion domain for an event. Two
// operations sharing a lock key never execute their upstream writes
// concurrently.
func LockKeyFor(workspace string, ev Event) (string, error) {
	key, err := ev.UserKey()
	if err != nil {
		return "", err
	}
	lockKey, _ := Keys(workspace, ev.Kind(), key)
	return lockKey, nil
}

// JobKeyFor returns the coalescing domain for an event: the directory
// key under which an open upstream job may be found and recorded.
func JobKeyFor(workspace string, ev Event) (string, error) {
	key, err := ev.UserKey()
	if err != nil {
		return "", err
	}
	_, jobKey := Keys(workspace, ev.Kind(), key)
	return jobKey, nil
}
