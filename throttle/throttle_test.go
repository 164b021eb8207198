package throttle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Manager basics
// ---------------------------------------------------------------------------

func TestNewManager_Empty(t *testing.T) {
	m := NewManager()
	// No configs; Acquire/Release should always succeed.
	if !m.Acquire("users", "") {
		t.Fatal("expected Acquire to succeed for unconfigured data type")
	}
	m.Release("users", "")
}

func TestNewManager_WithConfig(t *testing.T) {
	m := NewManager(Config{
		DataType:    "events",
		MaxInFlight: 2,
	})
	if m.InFlight("events") != 0 {
		t.Fatal("expected 0 in-flight calls initially")
	}
}

// ---------------------------------------------------------------------------
// In-flight caps
// ---------------------------------------------------------------------------

func TestManager_MaxInFlight(t *testing.T) {
	m := NewManager(Config{
		DataType:    "events",
		MaxInFlight: 2,
	})

	if !m.Acquire("events", "") {
		t.Fatal("first Acquire should succeed")
	}
	if !m.Acquire("events", "") {
		t.Fatal("second Acquire should succeed")
	}
	// Third should be blocked.
	if m.Acquire("events", "") {
		t.Fatal("third Acquire should fail (max in-flight 2)")
	}

	// Release one slot.
	m.Release("events", "")
	if !m.Acquire("events", "") {
		t.Fatal("Acquire should succeed after Release")
	}
}

func TestManager_AcquireRelease_InFlight(t *testing.T) {
	m := NewManager(Config{
		DataType:    "users",
		MaxInFlight: 5,
	})

	for i := range 3 {
		if !m.Acquire("users", "") {
			t.Fatalf("Acquire %d should succeed", i)
		}
	}
	if m.InFlight("users") != 3 {
		t.Fatalf("expected 3 in flight, got %d", m.InFlight("users"))
	}

	m.Release("users", "")
	m.Release("users", "")
	if m.InFlight("users") != 1 {
		t.Fatalf("expected 1 in flight, got %d", m.InFlight("users"))
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestManager_RateLimit_Throttles(t *testing.T) {
	m := NewManager(Config{
		DataType:  "users",
		RateLimit: 1.0, // 1 per second
		RateBurst: 1,
	})

	// First should succeed (burst allows it).
	if !m.Acquire("users", "") {
		t.Fatal("first Acquire should succeed (within burst)")
	}
	m.Release("users", "")

	// Immediately after, token bucket is empty.
	if m.Acquire("users", "") {
		t.Fatal("second Acquire should fail (rate limited)")
	}

	// Wait for token refill.
	time.Sleep(1100 * time.Millisecond)
	if !m.Acquire("users", "") {
		t.Fatal("Acquire should succeed after token refill")
	}
	m.Release("users", "")
}

func TestManager_RateLimit_BurstAllows(t *testing.T) {
	m := NewManager(Config{
		DataType:  "events",
		RateLimit: 10.0,
		RateBurst: 3,
	})

	// Three immediate acquires should succeed (burst = 3).
	for i := range 3 {
		if !m.Acquire("events", "") {
			t.Fatalf("Acquire %d should succeed (within burst)", i)
		}
		m.Release("events", "")
	}
}

// ---------------------------------------------------------------------------
// Per-workspace isolation
// ---------------------------------------------------------------------------

func TestManager_WorkspaceLimit(t *testing.T) {
	m := NewManager(Config{
		DataType:    "users",
		MaxInFlight: 100, // high data-type limit
	})

	m.SetWorkspaceConfig(WorkspaceConfig{
		DataType:    "users",
		Workspace:   "wsA",
		MaxInFlight: 1,
	})

	// Workspace A: first call succeeds.
	if !m.Acquire("users", "wsA") {
		t.Fatal("wsA first Acquire should succeed")
	}
	// Workspace A: second call blocked.
	if m.Acquire("users", "wsA") {
		t.Fatal("wsA second Acquire should fail (workspace max 1)")
	}

	// Workspace B (no config): should still succeed.
	if !m.Acquire("users", "wsB") {
		t.Fatal("wsB Acquire should succeed (no workspace limit)")
	}

	m.Release("users", "wsA")
	m.Release("users", "wsB")
}

func TestManager_WorkspaceIsolation(t *testing.T) {
	m := NewManager(Config{
		DataType:    "events",
		MaxInFlight: 100,
	})

	m.SetWorkspaceConfig(WorkspaceConfig{
		DataType:    "events",
		Workspace:   "wsA",
		MaxInFlight: 2,
	})
	m.SetWorkspaceConfig(WorkspaceConfig{
		DataType:    "events",
		Workspace:   "wsB",
		MaxInFlight: 2,
	})

	// Fill wsA slots.
	m.Acquire("events", "wsA")
	m.Acquire("events", "wsA")

	// wsA is maxed.
	if m.Acquire("events", "wsA") {
		t.Fatal("wsA should be blocked at max in-flight")
	}

	// wsB is unaffected.
	if !m.Acquire("events", "wsB") {
		t.Fatal("wsB should not be affected by wsA's limits")
	}

	m.Release("events", "wsA")
	m.Release("events", "wsA")
	m.Release("events", "wsB")
}

func TestManager_WorkspaceInFlight(t *testing.T) {
	m := NewManager(Config{DataType: "users", MaxInFlight: 10})
	m.SetWorkspaceConfig(WorkspaceConfig{
		DataType:    "users",
		Workspace:   "ws1",
		MaxInFlight: 5,
	})

	m.Acquire("users", "ws1")
	m.Acquire("users", "ws1")

	if got := m.WorkspaceInFlight("users", "ws1"); got != 2 {
		t.Fatalf("expected workspace in-flight 2, got %d", got)
	}

	m.Release("users", "ws1")
	if got := m.WorkspaceInFlight("users", "ws1"); got != 1 {
		t.Fatalf("expected workspace in-flight 1, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Dynamic reconfiguration
// ---------------------------------------------------------------------------

func TestManager_SetConfig(t *testing.T) {
	m := NewManager(Config{
		DataType:    "users",
		MaxInFlight: 1,
	})

	m.Acquire("users", "")
	if m.Acquire("users", "") {
		t.Fatal("should be blocked at max in-flight 1")
	}

	// Raise the limit dynamically.
	m.SetConfig(Config{
		DataType:    "users",
		MaxInFlight: 3,
	})

	// Now should succeed.
	if !m.Acquire("users", "") {
		t.Fatal("should succeed after raising the cap")
	}
	m.Release("users", "")
	m.Release("users", "")
}

// ---------------------------------------------------------------------------
// Concurrency safety
// ---------------------------------------------------------------------------

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(Config{
		DataType:    "events",
		MaxInFlight: 50,
	})

	var acquired atomic.Int64
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("events", "") {
				acquired.Add(1)
				// Simulate an upstream round trip.
				time.Sleep(time.Millisecond)
				m.Release("events", "")
			}
		}()
	}

	wg.Wait()

	// At least some should have succeeded.
	if acquired.Load() == 0 {
		t.Fatal("expected some Acquires to succeed")
	}

	// In-flight should be back to 0.
	if m.InFlight("events") != 0 {
		t.Fatalf("expected 0 in flight after all goroutines, got %d", m.InFlight("events"))
	}
}

func TestManager_UnconfiguredDataType_AlwaysSucceeds(t *testing.T) {
	m := NewManager(Config{
		DataType:    "users",
		MaxInFlight: 1,
	})

	// "events" has no config — no limits.
	for range 10 {
		if !m.Acquire("events", "") {
			t.Fatal("unconfigured data type should always allow Acquire")
		}
	}
	for range 10 {
		m.Release("events", "")
	}
}

func TestManager_ReleaseUnderflow(t *testing.T) {
	m := NewManager(Config{
		DataType:    "users",
		MaxInFlight: 5,
	})

	// Release without Acquire should not go negative.
	m.Release("users", "")
	if m.InFlight("users") != 0 {
		t.Fatal("in-flight count should not go below 0")
	}
}
