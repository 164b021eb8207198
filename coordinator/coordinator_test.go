package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/coalesce/directory"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/ext"
	"github.com/xraph/coalesce/gateway"
	"github.com/xraph/coalesce/lock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ──────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────

// fakeGateway counts upstream calls and returns canned jobs. An
// optional createGate lets a test hold the first create open so a
// contending caller can pile up behind the lock.
type fakeGateway struct {
	mu        sync.Mutex
	creates   int
	appends   int
	appended  []string // job ids append was attempted against
	jobIDs    []string // ids handed out by successive creates
	closingAt time.Time
	appendErr error
	createErr error

	createStarted chan struct{}
	createGate    chan struct{}
}

func (g *fakeGateway) CreateJob(_ context.Context, _ event.DataType, _ []event.Item) (*gateway.Job, error) {
	if g.createStarted != nil {
		g.createStarted <- struct{}{}
	}
	if g.createGate != nil {
		<-g.createGate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	id := "J1"
	if g.creates < len(g.jobIDs) {
		id = g.jobIDs[g.creates]
	}
	g.creates++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &gateway.Job{ID: id, State: "pending", ClosingAt: g.closingAt}, nil
}

func (g *fakeGateway) AppendJob(_ context.Context, _ event.DataType, jobID string, _ []event.Item) (*gateway.Job, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appends++
	g.appended = append(g.appended, jobID)
	if g.appendErr != nil {
		return nil, g.appendErr
	}
	return &gateway.Job{ID: jobID, State: "pending", ClosingAt: g.closingAt}, nil
}

func (g *fakeGateway) SaveUser(_ context.Context, _ map[string]any) (*gateway.Response, error) {
	return &gateway.Response{StatusCode: 200}, nil
}

func (g *fakeGateway) TrackEvent(_ context.Context, _ map[string]any) (*gateway.Response, error) {
	return &gateway.Response{StatusCode: 200}, nil
}

func (g *fakeGateway) counts() (creates, appends int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creates, g.appends
}

// fakeLocker tracks acquire/release pairing and can fail acquisition.
type fakeLocker struct {
	mu         sync.Mutex
	acquires   int
	releases   int
	acquireErr error
}

func (l *fakeLocker) Acquire(_ context.Context, key string, opts lock.AcquireOptions) (*lock.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	l.acquires++
	return &lock.Lease{Key: key, TTL: opts.TTL, AcquiredAt: time.Now().UTC()}, nil
}

func (l *fakeLocker) Release(_ context.Context, _ *lock.Lease) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases++
	return nil
}

func (l *fakeLocker) pairing() (acquires, releases int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquires, l.releases
}

// fakeDirectory is an in-memory directory with injectable failures.
type fakeDirectory struct {
	mu        sync.Mutex
	records   map[string]*directory.Record
	lookupErr error
	recordErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{records: make(map[string]*directory.Record)}
}

func (d *fakeDirectory) Lookup(_ context.Context, key string) (*directory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	rec, ok := d.records[key]
	if !ok || rec.Expired(time.Now().UTC()) {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (d *fakeDirectory) Record(_ context.Context, key, jobID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recordErr != nil {
		return d.recordErr
	}
	d.records[key] = &directory.Record{JobID: jobID, ExpiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (d *fakeDirectory) Clear(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, key)
	return nil
}

func (d *fakeDirectory) get(key string) *directory.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.records[key]
}

func (d *fakeDirectory) put(key, jobID string, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[key] = &directory.Record{JobID: jobID, ExpiresAt: time.Now().UTC().Add(ttl)}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func testCoordinator(l lock.Locker, d directory.Directory, gw gateway.Gateway) *Coordinator {
	return NewCoordinator(
		l, d, gw,
		ext.NewRegistry(testLogger()),
		testLogger(),
		30*time.Second, 5*time.Second, 15*time.Minute, 15*time.Second,
	)
}

func testOperation(t *testing.T, userID string) *event.Operation {
	t.Helper()
	op, err := event.NewOperation("ws1", &event.Track{UserID: userID, Name: "signed_up"}, []event.Item{
		event.NewItem(event.DataTypeEvents, map[string]any{"event_name": "signed_up", "user_id": userID}),
	})
	if err != nil {
		t.Fatalf("NewOperation error: %v", err)
	}
	return op
}

// ──────────────────────────────────────────────────
// State machine transitions
// ──────────────────────────────────────────────────

func TestRun_DirectoryMiss_CreatesExactlyOnce(t *testing.T) {
	gw := &fakeGateway{jobIDs: []string{"J9"}, closingAt: time.Now().UTC().Add(15 * time.Minute)}
	dir := newFakeDirectory()
	locker := &fakeLocker{}
	co := testCoordinator(locker, dir, gw)
	op := testOperation(t, "user42")

	job, err := co.Run(context.Background(), op)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if job.ID != "J9" {
		t.Errorf("job id = %q, want J9", job.ID)
	}

	creates, appends := gw.counts()
	if creates != 1 || appends != 0 {
		t.Errorf("creates=%d appends=%d, want 1 create and no appends on a miss", creates, appends)
	}

	rec := dir.get(op.JobKey)
	if rec == nil {
		t.Fatalf("no directory record for %q after create", op.JobKey)
	}
	if rec.JobID != "J9" {
		t.Errorf("recorded job id = %q, want J9", rec.JobID)
	}
	if !rec.ExpiresAt.Before(gw.closingAt) {
		t.Errorf("record expires at %v, not before job closes at %v", rec.ExpiresAt, gw.closingAt)
	}
}

func TestRun_DirectoryHit_AppendsWithoutCreate(t *testing.T) {
	gw := &fakeGateway{}
	dir := newFakeDirectory()
	co := testCoordinator(&fakeLocker{}, dir, gw)
	op := testOperation(t, "user42")
	dir.put(op.JobKey, "J1", time.Minute)

	job, err := co.Run(context.Background(), op)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if job.ID != "J1" {
		t.Errorf("job id = %q, want J1", job.ID)
	}

	creates, appends := gw.counts()
	if creates != 0 || appends != 1 {
		t.Errorf("creates=%d appends=%d, want append only on a live hit", creates, appends)
	}
	if rec := dir.get(op.JobKey); rec == nil || rec.JobID != "J1" {
		t.Errorf("record changed after successful append: %+v", rec)
	}
}

func TestRun_ExpiredRecord_TreatedAsMiss(t *testing.T) {
	gw := &fakeGateway{jobIDs: []string{"J2"}}
	dir := newFakeDirectory()
	co := testCoordinator(&fakeLocker{}, dir, gw)
	op := testOperation(t, "user42")
	dir.put(op.JobKey, "J1", -time.Second)

	if _, err := co.Run(context.Background(), op); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	creates, appends := gw.counts()
	if creates != 1 || appends != 0 {
		t.Errorf("creates=%d appends=%d, want expired record to read as a miss", creates, appends)
	}
}

func TestRun_AppendFailure_FallsBackToCreate(t *testing.T) {
	appendErr := &gateway.APIError{StatusCode: 500, Body: "job closed"}
	gw := &fakeGateway{appendErr: appendErr, jobIDs: []string{"J2"}}
	dir := newFakeDirectory()
	co := testCoordinator(&fakeLocker{}, dir, gw)
	op := testOperation(t, "user42")
	dir.put(op.JobKey, "J1", time.Minute)

	job, err := co.Run(context.Background(), op)
	if err != nil {
		t.Fatalf("caller saw the absorbed append failure: %v", err)
	}
	if job.ID != "J2" {
		t.Errorf("job id = %q, want the fresh job J2", job.ID)
	}

	creates, appends := gw.counts()
	if appends != 1 || creates != 1 {
		t.Errorf("creates=%d appends=%d, want exactly one of each (one-shot fallback)", creates, appends)
	}
	if rec := dir.get(op.JobKey); rec == nil || rec.JobID != "J2" {
		t.Errorf("directory not superseded with J2: %+v", rec)
	}
}

func TestRun_AppendAndCreateFail_SurfacesCreateError(t *testing.T) {
	createErr := &gateway.APIError{StatusCode: 503, Body: "unavailable"}
	gw := &fakeGateway{
		appendErr: errors.New("job closed"),
		createErr: createErr,
	}
	dir := newFakeDirectory()
	locker := &fakeLocker{}
	co := testCoordinator(locker, dir, gw)
	op := testOperation(t, "user42")
	dir.put(op.JobKey, "J1", time.Minute)

	_, err := co.Run(context.Background(), op)
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Fatalf("err = %v, want the create APIError", err)
	}

	// The fallback is one-shot: no second create attempt hides behind it.
	creates, appends := gw.counts()
	if appends != 1 || creates != 1 {
		t.Errorf("creates=%d appends=%d after double failure, want 1 and 1", creates, appends)
	}
	if acq, rel := locker.pairing(); rel != acq {
		t.Errorf("lock released %d times for %d acquires", rel, acq)
	}
}

func TestRun_LockUnavailable_NoUpstreamCall(t *testing.T) {
	gw := &fakeGateway{}
	locker := &fakeLocker{acquireErr: errors.New("coalesce: lock unavailable")}
	co := testCoordinator(locker, newFakeDirectory(), gw)

	_, err := co.Run(context.Background(), testOperation(t, "user42"))
	if err == nil {
		t.Fatal("expected lock acquisition error")
	}

	creates, appends := gw.counts()
	if creates != 0 || appends != 0 {
		t.Errorf("upstream contacted (%d creates, %d appends) despite lock failure", creates, appends)
	}
}

func TestRun_DirectoryReadFailure_FailsClosedAndUnlocks(t *testing.T) {
	gw := &fakeGateway{}
	dir := newFakeDirectory()
	dir.lookupErr = errors.New("store unreachable")
	locker := &fakeLocker{}
	co := testCoordinator(locker, dir, gw)

	_, err := co.Run(context.Background(), testOperation(t, "user42"))
	if err == nil {
		t.Fatal("expected directory read failure to surface")
	}

	creates, appends := gw.counts()
	if creates != 0 || appends != 0 {
		t.Errorf("upstream contacted (%d creates, %d appends) on unreadable directory", creates, appends)
	}
	if acq, rel := locker.pairing(); acq != 1 || rel != 1 {
		t.Errorf("acquires=%d releases=%d, want lock released after failure", acq, rel)
	}
}

func TestRun_DirectoryWriteFailure_AbsorbedForCaller(t *testing.T) {
	gw := &fakeGateway{jobIDs: []string{"J5"}}
	dir := newFakeDirectory()
	dir.recordErr = errors.New("store unreachable")
	co := testCoordinator(&fakeLocker{}, dir, gw)

	job, err := co.Run(context.Background(), testOperation(t, "user42"))
	if err != nil {
		t.Fatalf("caller saw the absorbed directory write failure: %v", err)
	}
	if job.ID != "J5" {
		t.Errorf("job id = %q, want J5", job.ID)
	}
}

func TestRun_LockReleasedOnEveryTerminalPath(t *testing.T) {
	tests := []struct {
		name    string
		gateway *fakeGateway
		prime   bool
	}{
		{"create success", &fakeGateway{}, false},
		{"append success", &fakeGateway{}, true},
		{"append fallback", &fakeGateway{appendErr: errors.New("closed")}, true},
		{"create failure", &fakeGateway{createErr: errors.New("down")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newFakeDirectory()
			locker := &fakeLocker{}
			co := testCoordinator(locker, dir, tt.gateway)
			op := testOperation(t, "user42")
			if tt.prime {
				dir.put(op.JobKey, "J1", time.Minute)
			}

			_, _ = co.Run(context.Background(), op)

			if acq, rel := locker.pairing(); acq != 1 || rel != 1 {
				t.Errorf("acquires=%d releases=%d, want exactly one of each", acq, rel)
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// hookRecorder captures which lifecycle events fired.
type hookRecorder struct {
	mu        sync.Mutex
	opened    int
	appended  int
	fallbacks int
	degraded  int
	completed int
	failed    int
}

func (h *hookRecorder) Name() string { return "hook-recorder" }

func (h *hookRecorder) OnJobOpened(_ context.Context, _ *event.Operation, _ *gateway.Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened++
	return nil
}

func (h *hookRecorder) OnWriteAppended(_ context.Context, _ *event.Operation, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appended++
	return nil
}

func (h *hookRecorder) OnAppendFallback(_ context.Context, _ *event.Operation, _ string, _ error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fallbacks++
	return nil
}

func (h *hookRecorder) OnDirectoryDegraded(_ context.Context, _ *event.Operation, _ error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.degraded++
	return nil
}

func (h *hookRecorder) OnWriteCompleted(_ context.Context, _ *event.Operation, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed++
	return nil
}

func (h *hookRecorder) OnWriteFailed(_ context.Context, _ *event.Operation, _ error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed++
	return nil
}

func TestRun_EmitsLifecycleHooks(t *testing.T) {
	gw := &fakeGateway{appendErr: errors.New("closed"), jobIDs: []string{"J2"}}
	dir := newFakeDirectory()
	dir.recordErr = errors.New("store down")

	registry := ext.NewRegistry(testLogger())
	rec := &hookRecorder{}
	registry.Register(rec)

	co := NewCoordinator(
		&fakeLocker{}, dir, gw, registry, testLogger(),
		30*time.Second, 5*time.Second, 15*time.Minute, 15*time.Second,
	)
	op := testOperation(t, "user42")
	dir.put(op.JobKey, "J1", time.Minute)

	if _, err := co.Run(context.Background(), op); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.fallbacks != 1 {
		t.Errorf("fallback hooks = %d, want 1", rec.fallbacks)
	}
	if rec.opened != 1 {
		t.Errorf("job opened hooks = %d, want 1", rec.opened)
	}
	if rec.degraded != 1 {
		t.Errorf("directory degraded hooks = %d, want 1", rec.degraded)
	}
	if rec.completed != 1 || rec.failed != 0 {
		t.Errorf("completed=%d failed=%d, want a clean completion", rec.completed, rec.failed)
	}
	if rec.appended != 0 {
		t.Errorf("appended hooks = %d for a rejected append, want 0", rec.appended)
	}
}
