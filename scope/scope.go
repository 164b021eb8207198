// Package scope provides helpers to capture and restore workspace
// execution context (workspace and user identity) from/to context.Context.
//
// The coordinator's scope middleware attaches each operation's workspace
// and user key to the context before the state machine runs. Downstream
// components (the gateway's throttle accounting, log enrichment) read
// them back with Capture.
package scope

import "context"

type ctxKey struct{}

type scope struct {
	workspace string
	userKey   string
}

// Capture extracts the workspace and user key from the context.
// Returns empty strings if no scope is present.
func Capture(ctx context.Context) (workspace, userKey string) {
	s, ok := ctx.Value(ctxKey{}).(scope)
	if !ok {
		return "", ""
	}
	return s.workspace, s.userKey
}

// Restore attaches a scope to the context using the given workspace and
// user key. If both are empty, the context is returned unchanged (no-op).
func Restore(ctx context.Context, workspace, userKey string) context.Context {
	if workspace == "" && userKey == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, scope{workspace: workspace, userKey: userKey})
}
