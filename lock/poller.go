package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/backoff"
	"github.com/xraph/coalesce/id"
)

// Poller adapts a TryLocker into a blocking Locker by re-trying with a
// backoff strategy. Arrival order among contenders is best effort: the
// jittered polling keeps waiters from stampeding but cannot promise
// strict FIFO the way the memory backend does.
type Poller struct {
	tl       TryLocker
	strategy backoff.Strategy
	logger   *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithStrategy sets the poll backoff strategy.
// Defaults to backoff.DefaultStrategy().
func WithStrategy(s backoff.Strategy) PollerOption {
	return func(p *Poller) {
		p.strategy = s
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}

// NewPoller creates a blocking Locker over the given atomic primitive.
func NewPoller(tl TryLocker, opts ...PollerOption) *Poller {
	p := &Poller{
		tl:       tl,
		strategy: backoff.DefaultStrategy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Locker = (*Poller)(nil)

// Acquire polls TryAcquire until granted, the wait budget is spent, or
// ctx is done. Store errors surface immediately as ErrLockUnavailable:
// an unreachable lock store means writes must not proceed.
func (p *Poller) Acquire(ctx context.Context, key string, opts AcquireOptions) (*Lease, error) {
	token := id.NewTokenID()

	var deadline time.Time
	if opts.Wait > 0 {
		deadline = time.Now().Add(opts.Wait)
	}

	for attempt := 0; ; attempt++ {
		ok, err := p.tl.TryAcquire(ctx, key, token.String(), opts.TTL)
		if err != nil {
			return nil, fmt.Errorf("%w: acquiring %q: %v", coalesce.ErrLockUnavailable, key, err)
		}
		if ok {
			if attempt > 0 {
				p.logger.Debug("lock acquired after contention",
					slog.String("key", key),
					slog.Int("attempts", attempt+1))
			}
			return &Lease{
				Key:        key,
				Token:      token,
				TTL:        opts.TTL,
				AcquiredAt: time.Now().UTC(),
			}, nil
		}

		delay := p.strategy.Delay(attempt + 1)
		if !deadline.IsZero() && time.Now().Add(delay).After(deadline) {
			return nil, fmt.Errorf("%w: %q still held after %s", coalesce.ErrLockUnavailable, key, opts.Wait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Release deletes the lock entry if the lease's token still matches.
func (p *Poller) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if err := p.tl.Release(ctx, lease.Key, lease.Token.String()); err != nil {
		return fmt.Errorf("coalesce/lock: release %q: %w", lease.Key, err)
	}
	return nil
}
