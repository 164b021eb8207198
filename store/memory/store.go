package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/directory"
	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/id"
	"github.com/xraph/coalesce/lock"
	"github.com/xraph/coalesce/store"
)

// Compile-time interface checks.
var (
	_ store.Store = (*Store)(nil)
	_ lock.Locker = (*fifoLocker)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
//
// Unlike the shared-store backends, Store also carries a native blocking
// locker with strict FIFO handoff; see Locker.
type Store struct {
	mu sync.RWMutex

	locks   map[string]*lockState
	records map[string]*directory.Record
	dlqs    map[string]*dlq.Entry
}

// lockState is one lock entry plus its queue of parked waiters.
type lockState struct {
	token     string
	expiresAt time.Time
	waiters   []*lockWaiter
}

func (st *lockState) expired(now time.Time) bool {
	return !now.Before(st.expiresAt)
}

// lockWaiter is one parked Acquire call. granted and gone are guarded
// by the store mutex; ready is buffered so handoff never blocks.
type lockWaiter struct {
	token   id.ID
	ttl     time.Duration
	ready   chan *lock.Lease
	granted bool
	gone    bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		locks:   make(map[string]*lockState),
		records: make(map[string]*directory.Record),
		dlqs:    make(map[string]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Lock Store
// ──────────────────────────────────────────────────

// TryAcquire takes key in one atomic step. A held entry loses, as does
// an expired entry with parked waiters: queued callers keep their place.
func (m *Store) TryAcquire(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	st, ok := m.locks[key]
	if ok && !st.expired(now) {
		return false, nil
	}
	if ok && st.liveWaiters() > 0 {
		return false, nil
	}
	m.locks[key] = &lockState{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release deletes the entry for key if its token still matches, handing
// the lock to the next parked waiter when one exists.
func (m *Store) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.locks[key]
	if !ok || st.token != token {
		return nil
	}
	m.grantNext(key, st)
	return nil
}

// liveWaiters counts waiters that have not abandoned their place.
func (st *lockState) liveWaiters() int {
	n := 0
	for _, w := range st.waiters {
		if !w.gone {
			n++
		}
	}
	return n
}

// grantNext hands the entry to the next live waiter in arrival order,
// or deletes it when the queue is empty. Caller must hold mu.
func (m *Store) grantNext(key string, st *lockState) {
	now := time.Now().UTC()
	for len(st.waiters) > 0 {
		w := st.waiters[0]
		st.waiters = st.waiters[1:]
		if w.gone {
			continue
		}
		st.token = w.token.String()
		st.expiresAt = now.Add(w.ttl)
		w.granted = true
		w.ready <- &lock.Lease{
			Key:        key,
			Token:      w.token,
			TTL:        w.ttl,
			AcquiredAt: now,
		}
		return
	}
	delete(m.locks, key)
}

// Locker returns the blocking locker backed by this store's lock table.
// Contenders are granted in strict arrival order; the TTL safety net
// still applies, so a holder that never releases cannot strand the
// queue past its lease.
func (m *Store) Locker() lock.Locker {
	return &fifoLocker{s: m}
}

// fifoLocker is the native blocking facade over the store's lock table.
type fifoLocker struct {
	s *Store
}

// Acquire grants key immediately when free, otherwise parks in the
// FIFO queue until handed the lock, the wait budget runs out, or ctx
// is done.
func (l *fifoLocker) Acquire(ctx context.Context, key string, opts lock.AcquireOptions) (*lock.Lease, error) {
	token := id.NewTokenID()
	s := l.s

	s.mu.Lock()
	now := time.Now().UTC()
	st, ok := s.locks[key]
	if !ok || (st.expired(now) && st.liveWaiters() == 0) {
		s.locks[key] = &lockState{token: token.String(), expiresAt: now.Add(opts.TTL)}
		s.mu.Unlock()
		return &lock.Lease{Key: key, Token: token, TTL: opts.TTL, AcquiredAt: now}, nil
	}
	w := &lockWaiter{token: token, ttl: opts.TTL, ready: make(chan *lock.Lease, 1)}
	st.waiters = append(st.waiters, w)
	holderExpiry := st.expiresAt
	s.mu.Unlock()

	var waitCh <-chan time.Time
	if opts.Wait > 0 {
		waitTimer := time.NewTimer(opts.Wait)
		defer waitTimer.Stop()
		waitCh = waitTimer.C
	}

	for {
		// Arm a timer for the holder's safety-net expiry so a holder
		// that never releases cannot strand the queue.
		expTimer := time.NewTimer(time.Until(holderExpiry))
		select {
		case lease := <-w.ready:
			expTimer.Stop()
			return lease, nil
		case <-ctx.Done():
			expTimer.Stop()
			l.abandon(key, w)
			return nil, ctx.Err()
		case <-waitCh:
			expTimer.Stop()
			l.abandon(key, w)
			return nil, fmt.Errorf("%w: %q still held after %s", coalesce.ErrLockUnavailable, key, opts.Wait)
		case <-expTimer.C:
			if lease := l.claimExpired(key, w, &holderExpiry); lease != nil {
				return lease, nil
			}
		}
	}
}

// Release relinquishes the lease, handing the lock to the next waiter.
func (l *fifoLocker) Release(ctx context.Context, lease *lock.Lease) error {
	if lease == nil {
		return nil
	}
	return l.s.Release(ctx, lease.Key, lease.Token.String())
}

// claimExpired runs when the holder's safety-net expiry passes while w
// is parked. The head waiter takes an expired entry; everyone else
// re-arms against the current expiry. Returns the lease when granted.
func (l *fifoLocker) claimExpired(key string, w *lockWaiter, holderExpiry *time.Time) *lock.Lease {
	s := l.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.granted {
		return <-w.ready
	}

	now := time.Now().UTC()
	st, ok := s.locks[key]
	if !ok {
		s.locks[key] = &lockState{token: w.token.String(), expiresAt: now.Add(w.ttl)}
		w.granted = true
		return &lock.Lease{Key: key, Token: w.token, TTL: w.ttl, AcquiredAt: now}
	}

	if st.expired(now) && st.headWaiter() == w {
		st.waiters = st.waiters[1:]
		st.token = w.token.String()
		st.expiresAt = now.Add(w.ttl)
		w.granted = true
		return &lock.Lease{Key: key, Token: w.token, TTL: w.ttl, AcquiredAt: now}
	}

	*holderExpiry = st.expiresAt
	return nil
}

// headWaiter returns the first live waiter, trimming abandoned ones.
func (st *lockState) headWaiter() *lockWaiter {
	for len(st.waiters) > 0 && st.waiters[0].gone {
		st.waiters = st.waiters[1:]
	}
	if len(st.waiters) == 0 {
		return nil
	}
	return st.waiters[0]
}

// abandon removes w from the queue after a timeout or cancellation.
// When the grant raced the timeout, holdership passes straight on.
func (l *fifoLocker) abandon(key string, w *lockWaiter) {
	s := l.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.granted {
		if st, ok := s.locks[key]; ok && st.token == w.token.String() {
			s.grantNext(key, st)
		}
		return
	}
	w.gone = true
}

// ──────────────────────────────────────────────────
// Directory
// ──────────────────────────────────────────────────

// Lookup returns the active record for key. Expired records are
// treated as absent.
func (m *Store) Lookup(_ context.Context, key string) (*directory.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok || rec.Expired(time.Now().UTC()) {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Record unconditionally overwrites the record for key.
func (m *Store) Record(_ context.Context, key, jobID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = &directory.Record{
		JobID:     jobID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

// Clear removes the record for key.
func (m *Store) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

// ──────────────────────────────────────────────────
// DLQ Store
// ──────────────────────────────────────────────────

// PushDLQ adds a failed write entry to the dead letter queue.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.dlqs[entry.ID.String()] = &cp
	return nil
}

// ListDLQ returns DLQ entries matching the given options.
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(m.dlqs))
	for _, e := range m.dlqs {
		if opts.Workspace != "" && e.Workspace != opts.Workspace {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	// Sort by FailedAt for deterministic output.
	sort.Slice(result, func(i, k int) bool {
		return result[i].FailedAt.Before(result[k].FailedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.ID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return nil, coalesce.ErrDLQNotFound
	}
	cp := *e
	return &cp, nil
}

// ReplayDLQ marks a DLQ entry as replayed.
func (m *Store) ReplayDLQ(_ context.Context, entryID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return coalesce.ErrDLQNotFound
	}
	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, e := range m.dlqs {
		if e.FailedAt.Before(before) {
			delete(m.dlqs, key)
			count++
		}
	}
	return count, nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (m *Store) CountDLQ(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.dlqs)), nil
}

// ──────────────────────────────────────────────────
// Sweep
// ──────────────────────────────────────────────────

// SweepExpired clears expired lock entries and directory records. An
// expired lock with parked waiters is handed off rather than deleted,
// so sweeping never lets a fresh caller jump the queue.
func (m *Store) SweepExpired(_ context.Context) (locks, records int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for key, st := range m.locks {
		if !st.expired(now) {
			continue
		}
		m.grantNext(key, st)
		locks++
	}
	for key, rec := range m.records {
		if rec.Expired(now) {
			delete(m.records, key)
			records++
		}
	}
	return locks, records, nil
}
