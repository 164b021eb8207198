package throttle

import (
	"fmt"

	"golang.org/x/time/rate"
)

// WorkspaceConfig defines rate limits and in-flight caps for a specific
// workspace on a specific data type.
type WorkspaceConfig struct {
	// DataType is the data type this config applies to.
	DataType string

	// Workspace is the workspace identifier.
	Workspace string

	// RateLimit is the sustained upstream calls per second for this
	// workspace.
	RateLimit float64

	// RateBurst is the burst size for the workspace's rate limiter.
	RateBurst int

	// MaxInFlight limits simultaneous calls for this workspace on this
	// data type. Zero means no workspace-specific limit.
	MaxInFlight int
}

// workspaceState tracks runtime state for a single data-type+workspace pair.
type workspaceState struct {
	limiter     *rate.Limiter
	maxInFlight int
	active      int
}

// workspaceKey builds the map key for a data-type+workspace pair.
func workspaceKey(dataType, workspace string) string {
	return fmt.Sprintf("%s:%s", dataType, workspace)
}

// SetWorkspaceConfig configures rate limits and in-flight caps for a
// specific workspace on a specific data type. Calling this multiple times
// for the same data-type+workspace replaces the previous configuration.
func (m *Manager) SetWorkspaceConfig(cfg WorkspaceConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := workspaceKey(cfg.DataType, cfg.Workspace)
	existing := m.workspaces[key]

	ws := &workspaceState{
		maxInFlight: cfg.MaxInFlight,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ws.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	// Preserve current in-flight count if reconfiguring.
	if existing != nil {
		ws.active = existing.active
	}
	m.workspaces[key] = ws
}

// WorkspaceInFlight returns the current number of in-flight calls for a
// data-type+workspace pair.
func (m *Manager) WorkspaceInFlight(dataType, workspace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ws := m.workspaces[workspaceKey(dataType, workspace)]; ws != nil {
		return ws.active
	}
	return 0
}
