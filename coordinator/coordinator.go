package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/coalesce/directory"
	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/ext"
	"github.com/xraph/coalesce/gateway"
	"github.com/xraph/coalesce/lock"
	"github.com/xraph/coalesce/middleware"
)

// Coordinator serializes and coalesces outbound writes. One Run handles
// one operation end to end: every mutation of the operation's directory
// record happens while its lock is held, and the lock is released on
// every exit path before the caller gets control back.
type Coordinator struct {
	locker     lock.Locker
	directory  directory.Directory
	gateway    gateway.Gateway
	extensions *ext.Registry
	dlq        *dlq.Service
	deadLetter bool
	mw         middleware.Middleware
	logger     *slog.Logger

	lockTTL   time.Duration
	lockWait  time.Duration
	jobWindow time.Duration
	ttlMargin time.Duration
}

// NewCoordinator creates a Coordinator with the given dependencies.
func NewCoordinator(
	locker lock.Locker,
	dir directory.Directory,
	gw gateway.Gateway,
	extensions *ext.Registry,
	logger *slog.Logger,
	lockTTL, lockWait, jobWindow, ttlMargin time.Duration,
	mws ...middleware.Middleware,
) *Coordinator {
	return &Coordinator{
		locker:     locker,
		directory:  dir,
		gateway:    gw,
		extensions: extensions,
		mw:         middleware.Chain(mws...),
		logger:     logger,
		lockTTL:    lockTTL,
		lockWait:   lockWait,
		jobWindow:  jobWindow,
		ttlMargin:  ttlMargin,
	}
}

// Run drives one operation through the middleware chain and the write
// state machine, then emits the terminal lifecycle event.
// On success the caller receives the upstream job the items landed in,
// whether by append or by create.
func (c *Coordinator) Run(ctx context.Context, op *event.Operation) (*gateway.Job, error) {
	var job *gateway.Job

	// The terminal handler that runs the state machine.
	terminal := func(ctx context.Context) error {
		j, runErr := c.run(ctx, op)
		job = j
		return runErr
	}

	start := time.Now()
	err := c.mw(ctx, op, terminal)
	elapsed := time.Since(start)

	if err != nil {
		c.extensions.EmitWriteFailed(ctx, op, err)
		return nil, err
	}

	c.extensions.EmitWriteCompleted(ctx, op, elapsed)
	return job, nil
}

// run is the write state machine: lock, look up, append or create,
// record, unlock.
func (c *Coordinator) run(ctx context.Context, op *event.Operation) (*gateway.Job, error) {
	lease, err := c.locker.Acquire(ctx, op.LockKey, lock.AcquireOptions{
		TTL:  c.lockTTL,
		Wait: c.lockWait,
	})
	if err != nil {
		// No lock, no upstream call.
		return nil, err
	}
	defer c.release(ctx, lease)

	rec, err := c.directory.Lookup(ctx, op.JobKey)
	if err != nil {
		// Fail closed: an unreadable directory must not be guessed at.
		return nil, fmt.Errorf("coalesce/coordinator: directory lookup %q: %w", op.JobKey, err)
	}

	if rec != nil {
		job, appendErr := c.gateway.AppendJob(ctx, op.DataType, rec.JobID, op.Items)
		if appendErr == nil {
			c.extensions.EmitWriteAppended(ctx, op, rec.JobID)
			return job, nil
		}

		// Any append rejection means the recorded job is stale or
		// invalid. The reference is self-healing: fall through to a
		// single create, never surfacing the append error.
		c.logger.Warn("append rejected, opening fresh job",
			slog.String("op_id", op.ID.String()),
			slog.String("job_key", op.JobKey),
			slog.String("stale_job_id", rec.JobID),
			slog.String("error", appendErr.Error()),
		)
		c.extensions.EmitAppendFallback(ctx, op, rec.JobID, appendErr)
	}

	job, err := c.gateway.CreateJob(ctx, op.DataType, op.Items)
	if err != nil {
		// Terminal: there is no further fallback.
		if c.deadLetter && c.dlq != nil {
			c.capture(ctx, op, err)
		}
		return nil, err
	}
	c.extensions.EmitJobOpened(ctx, op, job)

	ttl := directory.TTLFor(job.ClosingAt, time.Now().UTC(), c.jobWindow, c.ttlMargin)
	if recErr := c.directory.Record(ctx, op.JobKey, job.ID, ttl); recErr != nil {
		// The write already landed; losing the record only costs
		// coalescing for subsequent callers, who will open their own job.
		c.logger.Warn("directory record failed, coalescing degraded",
			slog.String("op_id", op.ID.String()),
			slog.String("job_key", op.JobKey),
			slog.String("job_id", job.ID),
			slog.String("error", recErr.Error()),
		)
		c.extensions.EmitDirectoryDegraded(ctx, op, recErr)
	}

	return job, nil
}

// release relinquishes the lease on a context that survives caller
// cancellation. Release failures are logged, never surfaced: the TTL
// safety net bounds how long an unreleased entry can linger.
func (c *Coordinator) release(ctx context.Context, lease *lock.Lease) {
	if err := c.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
		c.logger.Warn("lock release failed",
			slog.String("key", lease.Key),
			slog.String("error", err.Error()),
		)
	}
}

// capture dead-letters a write that reached the upstream decision point
// and failed terminally.
func (c *Coordinator) capture(ctx context.Context, op *event.Operation, opErr error) {
	if pushErr := c.dlq.Push(ctx, op, opErr); pushErr != nil {
		c.logger.Error("dlq push failed",
			slog.String("op_id", op.ID.String()),
			slog.String("error", pushErr.Error()),
		)
		return
	}
	c.extensions.EmitWriteDLQ(ctx, op, opErr)
}
