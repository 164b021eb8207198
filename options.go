package coalesce

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Coalescer.
type Option func(*Coalescer) error

// Storer is the minimal store interface held by the Coalescer.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds all
// subsystem stores.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// sweepRunner is an internal interface for janitor lifecycle.
type sweepRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Coalescer holds the shared configuration, store, and lifecycle state
// for the write-coalescing pipeline.
//
// Create one with New() and functional options, then use the Build()
// function from the coalesce/coordinator package to wire the gateway,
// locks, directory, and extensions into a Forwarder. The Coalescer
// holds subsystem components via internal interfaces to avoid import
// cycles.
type Coalescer struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	janitor    sweepRunner

	// started tracks whether Start has been called.
	started bool
}

// New creates a new Coalescer with the given options.
func New(opts ...Option) (*Coalescer, error) {
	c := &Coalescer{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Logger returns the coalescer's logger.
func (c *Coalescer) Logger() *slog.Logger { return c.logger }

// Store returns the coalescer's store.
func (c *Coalescer) Store() Storer { return c.store }

// Config returns a copy of the coalescer's configuration.
func (c *Coalescer) Config() Config { return c.config }

// SetJanitor sets the expiry janitor (called by the coordinator package).
func (c *Coalescer) SetJanitor(j sweepRunner) { c.janitor = j }

// SetExtensions sets the extension emitter (called by the coordinator package).
func (c *Coalescer) SetExtensions(e extensionEmitter) { c.extensions = e }

// Start begins background maintenance (the expiry janitor, when the
// configured store needs one). Forwarding itself is caller-driven and
// needs no Start.
func (c *Coalescer) Start(ctx context.Context) error {
	if c.started {
		return ErrAlreadyStarted
	}
	if c.janitor != nil {
		if err := c.janitor.Start(ctx); err != nil {
			return err
		}
	}
	c.started = true
	return nil
}

// Stop gracefully shuts down the coalescer.
func (c *Coalescer) Stop(ctx context.Context) error {
	if c.janitor != nil && c.started {
		if err := c.janitor.Stop(ctx); err != nil {
			c.logger.Error("janitor stop error", "error", err)
		}
	}
	if c.extensions != nil {
		c.extensions.EmitShutdown(ctx)
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// WithMode sets the delivery strategy. The choice is permanent for the
// life of the Coalescer.
func WithMode(m Mode) Option {
	return func(c *Coalescer) error {
		c.config.Mode = m
		return nil
	}
}

// WithLockTTL sets the safety-net expiry applied to acquired locks.
func WithLockTTL(d time.Duration) Option {
	return func(c *Coalescer) error {
		c.config.LockTTL = d
		return nil
	}
}

// WithLockWait sets how long acquirers wait for a contended lock.
func WithLockWait(d time.Duration) Option {
	return func(c *Coalescer) error {
		c.config.LockWait = d
		return nil
	}
}

// WithJobWindow sets the upstream bulk-job lifetime.
func WithJobWindow(d time.Duration) Option {
	return func(c *Coalescer) error {
		c.config.JobWindow = d
		return nil
	}
}

// WithTTLMargin sets the margin subtracted from job lifetimes when
// recording directory entries.
func WithTTLMargin(d time.Duration) Option {
	return func(c *Coalescer) error {
		c.config.TTLMargin = d
		return nil
	}
}

// WithWriteTimeout bounds one whole write, lock wait included.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Coalescer) error {
		c.config.WriteTimeout = d
		return nil
	}
}

// WithSweepSchedule sets the janitor's cron expression.
func WithSweepSchedule(expr string) Option {
	return func(c *Coalescer) error {
		c.config.SweepSchedule = expr
		return nil
	}
}

// WithLogger sets the structured logger for the coalescer.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coalescer) error {
		c.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the coalescer.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(c *Coalescer) error {
		c.store = s
		return nil
	}
}
