package throttle

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-data-type behaviour such as rate limiting and
// in-flight caps.
type Config struct {
	// DataType is the upstream collection this config applies to
	// ("users" or "events").
	DataType string

	// MaxInFlight limits how many upstream calls for this data type may
	// be in flight simultaneously. Zero means no data-type-specific
	// limit.
	MaxInFlight int

	// RateLimit is the maximum sustained upstream calls per second for
	// this data type. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// dataTypeState tracks runtime state for a single data type.
type dataTypeState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Manager controls per-data-type and per-workspace rate limiting and
// in-flight caps. It is safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	dataTypes  map[string]*dataTypeState
	workspaces map[string]*workspaceState
}

// NewManager creates a Manager with the given data-type configurations.
// Data types not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		dataTypes:  make(map[string]*dataTypeState, len(configs)),
		workspaces: make(map[string]*workspaceState),
	}
	for _, cfg := range configs {
		m.dataTypes[cfg.DataType] = newDataTypeState(cfg)
	}
	return m
}

func newDataTypeState(cfg Config) *dataTypeState {
	ds := &dataTypeState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ds.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ds
}

// Acquire checks rate limits and in-flight caps for the given data type
// and workspace. If the call is allowed to proceed it increments the
// in-flight counter and returns true. The caller MUST call Release when
// the call completes.
func (m *Manager) Acquire(dataType, workspace string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check data-type-level constraints.
	ds := m.dataTypes[dataType]
	if ds != nil {
		if ds.limiter != nil && !ds.limiter.Allow() {
			return false
		}
		if ds.config.MaxInFlight > 0 && ds.active >= ds.config.MaxInFlight {
			return false
		}
	}

	// Check workspace-level constraints.
	if workspace != "" {
		ws := m.workspaces[workspaceKey(dataType, workspace)]
		if ws != nil {
			if ws.limiter != nil && !ws.limiter.Allow() {
				return false
			}
			if ws.maxInFlight > 0 && ws.active >= ws.maxInFlight {
				return false
			}
			ws.active++
		}
	}

	// Increment data-type in-flight count.
	if ds != nil {
		ds.active++
	}

	return true
}

// Release decrements the in-flight count for the data type and workspace.
func (m *Manager) Release(dataType, workspace string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ds := m.dataTypes[dataType]; ds != nil && ds.active > 0 {
		ds.active--
	}

	if workspace != "" {
		if ws := m.workspaces[workspaceKey(dataType, workspace)]; ws != nil && ws.active > 0 {
			ws.active--
		}
	}
}

// SetConfig dynamically updates (or creates) a data-type configuration.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.dataTypes[cfg.DataType]
	ds := newDataTypeState(cfg)

	// Preserve current in-flight count if reconfiguring.
	if existing != nil {
		ds.active = existing.active
	}
	m.dataTypes[cfg.DataType] = ds
}

// InFlight returns the current number of in-flight calls for a data type.
func (m *Manager) InFlight(dataType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ds := m.dataTypes[dataType]; ds != nil {
		return ds.active
	}
	return 0
}
