package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/coalesce/audit"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/gateway"
	"github.com/xraph/coalesce/id"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (m *mockRecorder) Record(_ context.Context, evt *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Test helpers ─────────────────────────────────────

func newTestOp() *event.Operation {
	return &event.Operation{
		ID:        id.NewOpID(),
		Kind:      event.KindIdentify,
		DataType:  event.DataTypeUsers,
		Workspace: "ws1",
		UserKey:   "u42",
		LockKey:   "ws1:u42",
		JobKey:    "ws1:users:u42",
		Items: []event.Item{
			event.NewItem(event.DataTypeUsers, map[string]any{"user_id": "u42"}),
		},
	}
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	if e.Name() != "audit" {
		t.Errorf("expected name %q, got %q", "audit", e.Name())
	}
}

func TestExtension_WriteReceived(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()

	if err := e.OnWriteReceived(context.Background(), op); err != nil {
		t.Fatalf("OnWriteReceived: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != audit.ActionWriteReceived {
		t.Errorf("Action: want %q, got %q", audit.ActionWriteReceived, evt.Action)
	}
	if evt.Resource != audit.ResourceWrite {
		t.Errorf("Resource: want %q, got %q", audit.ResourceWrite, evt.Resource)
	}
	if evt.Category != audit.CategoryWrite {
		t.Errorf("Category: want %q, got %q", audit.CategoryWrite, evt.Category)
	}
	if evt.ResourceID != op.ID.String() {
		t.Errorf("ResourceID: want %q, got %q", op.ID.String(), evt.ResourceID)
	}
	if evt.Severity != audit.SeverityInfo {
		t.Errorf("Severity: want %q, got %q", audit.SeverityInfo, evt.Severity)
	}
	if evt.Outcome != audit.OutcomeSuccess {
		t.Errorf("Outcome: want %q, got %q", audit.OutcomeSuccess, evt.Outcome)
	}
	if evt.Metadata["kind"] != "identify" {
		t.Errorf("Metadata[kind]: want identify, got %v", evt.Metadata["kind"])
	}
	if evt.Metadata["workspace"] != "ws1" {
		t.Errorf("Metadata[workspace]: want ws1, got %v", evt.Metadata["workspace"])
	}
}

func TestExtension_JobOpened(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()
	j := &gateway.Job{ID: "job_9", ClosingAt: time.Now().Add(15 * time.Minute)}

	if err := e.OnJobOpened(context.Background(), op, j); err != nil {
		t.Fatalf("OnJobOpened: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionJobOpened {
		t.Errorf("Action: want %q, got %q", audit.ActionJobOpened, evt.Action)
	}
	if evt.Resource != audit.ResourceJob {
		t.Errorf("Resource: want %q, got %q", audit.ResourceJob, evt.Resource)
	}
	if evt.ResourceID != "job_9" {
		t.Errorf("ResourceID: want job_9, got %q", evt.ResourceID)
	}
	if evt.Metadata["job_key"] != op.JobKey {
		t.Errorf("Metadata[job_key]: want %q, got %v", op.JobKey, evt.Metadata["job_key"])
	}
}

func TestExtension_WriteAppended(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()

	if err := e.OnWriteAppended(context.Background(), op, "job_5"); err != nil {
		t.Fatalf("OnWriteAppended: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionWriteAppended {
		t.Errorf("Action: want %q, got %q", audit.ActionWriteAppended, evt.Action)
	}
	if evt.Metadata["job_id"] != "job_5" {
		t.Errorf("Metadata[job_id]: want job_5, got %v", evt.Metadata["job_id"])
	}
	if evt.Metadata["items"] != 1 {
		t.Errorf("Metadata[items]: want 1, got %v", evt.Metadata["items"])
	}
}

func TestExtension_AppendFallback(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()
	appendErr := errors.New("job already closed")

	if err := e.OnAppendFallback(context.Background(), op, "job_stale", appendErr); err != nil {
		t.Fatalf("OnAppendFallback: %v", err)
	}

	evt := rec.last()
	if evt.Severity != audit.SeverityWarning {
		t.Errorf("Severity: want %q, got %q", audit.SeverityWarning, evt.Severity)
	}
	if evt.Outcome != audit.OutcomeFailure {
		t.Errorf("Outcome: want %q, got %q", audit.OutcomeFailure, evt.Outcome)
	}
	if evt.Reason != "job already closed" {
		t.Errorf("Reason: want %q, got %q", "job already closed", evt.Reason)
	}
	if evt.Metadata["stale_job_id"] != "job_stale" {
		t.Errorf("Metadata[stale_job_id]: want job_stale, got %v", evt.Metadata["stale_job_id"])
	}
}

func TestExtension_DirectoryDegraded(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()

	if err := e.OnDirectoryDegraded(context.Background(), op, errors.New("store down")); err != nil {
		t.Fatalf("OnDirectoryDegraded: %v", err)
	}

	evt := rec.last()
	if evt.Resource != audit.ResourceDirectory {
		t.Errorf("Resource: want %q, got %q", audit.ResourceDirectory, evt.Resource)
	}
	if evt.ResourceID != op.JobKey {
		t.Errorf("ResourceID: want %q, got %q", op.JobKey, evt.ResourceID)
	}
	if evt.Severity != audit.SeverityWarning {
		t.Errorf("Severity: want %q, got %q", audit.SeverityWarning, evt.Severity)
	}
}

func TestExtension_WriteCompleted(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()
	elapsed := 150 * time.Millisecond

	if err := e.OnWriteCompleted(context.Background(), op, elapsed); err != nil {
		t.Fatalf("OnWriteCompleted: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionWriteCompleted {
		t.Errorf("Action: want %q, got %q", audit.ActionWriteCompleted, evt.Action)
	}
	if evt.Metadata["elapsed_ms"] != elapsed.Milliseconds() {
		t.Errorf("Metadata[elapsed_ms]: want %d, got %v", elapsed.Milliseconds(), evt.Metadata["elapsed_ms"])
	}
}

func TestExtension_WriteFailed(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()

	if err := e.OnWriteFailed(context.Background(), op, errors.New("create rejected")); err != nil {
		t.Fatalf("OnWriteFailed: %v", err)
	}

	evt := rec.last()
	if evt.Severity != audit.SeverityCritical {
		t.Errorf("Severity: want %q, got %q", audit.SeverityCritical, evt.Severity)
	}
	if evt.Outcome != audit.OutcomeFailure {
		t.Errorf("Outcome: want %q, got %q", audit.OutcomeFailure, evt.Outcome)
	}
	if evt.Reason != "create rejected" {
		t.Errorf("Reason: want %q, got %q", "create rejected", evt.Reason)
	}
	if evt.Metadata["error"] != "create rejected" {
		t.Errorf("Metadata[error]: want create rejected, got %v", evt.Metadata["error"])
	}
}

func TestExtension_WriteDLQ(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec)
	op := newTestOp()

	if err := e.OnWriteDLQ(context.Background(), op, errors.New("terminal")); err != nil {
		t.Fatalf("OnWriteDLQ: %v", err)
	}

	evt := rec.last()
	if evt.Action != audit.ActionWriteDLQ {
		t.Errorf("Action: want %q, got %q", audit.ActionWriteDLQ, evt.Action)
	}
	if evt.Severity != audit.SeverityCritical {
		t.Errorf("Severity: want %q, got %q", audit.SeverityCritical, evt.Severity)
	}
}

// ── Filtering ────────────────────────────────────────

func TestExtension_WithActions_Filters(t *testing.T) {
	rec := &mockRecorder{}
	e := audit.New(rec, audit.WithActions(audit.ActionWriteFailed))
	op := newTestOp()
	ctx := context.Background()

	e.OnWriteReceived(ctx, op)
	e.OnWriteAppended(ctx, op, "job_1")
	e.OnWriteFailed(ctx, op, errors.New("boom"))

	if rec.count() != 1 {
		t.Fatalf("expected 1 recorded event, got %d", rec.count())
	}
	if rec.findByAction(audit.ActionWriteFailed) == nil {
		t.Error("expected write.failed to be recorded")
	}
	if rec.findByAction(audit.ActionWriteReceived) != nil {
		t.Error("write.received should have been filtered out")
	}
}

// ── Recorder failure ─────────────────────────────────

func TestExtension_RecorderErrorNotPropagated(t *testing.T) {
	e := audit.New(audit.RecorderFunc(func(_ context.Context, _ *audit.Event) error {
		return errors.New("backend down")
	}))

	// Hook must swallow the recorder failure.
	if err := e.OnWriteReceived(context.Background(), newTestOp()); err != nil {
		t.Fatalf("expected nil despite recorder failure, got %v", err)
	}
}

func TestAllActions_Complete(t *testing.T) {
	if got := len(audit.AllActions()); got != 8 {
		t.Errorf("AllActions() = %d entries, want 8", got)
	}
}
