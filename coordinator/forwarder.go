package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/backoff"
	"github.com/xraph/coalesce/directory"
	"github.com/xraph/coalesce/dlq"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/ext"
	"github.com/xraph/coalesce/gateway"
	"github.com/xraph/coalesce/janitor"
	"github.com/xraph/coalesce/lock"
	mw "github.com/xraph/coalesce/middleware"
	"github.com/xraph/coalesce/observability"
	"github.com/xraph/coalesce/payload"
)

// Result is the outcome of one forwarded event.
type Result struct {
	// Job is the upstream bulk job the items landed in. Set in bulk
	// mode only.
	Job *gateway.Job

	// Response is the upstream's single-record reply. Set in single
	// mode only.
	Response *gateway.Response
}

// submitFunc is the delivery strategy fixed at Build time.
type submitFunc func(ctx context.Context, op *event.Operation) (*Result, error)

// nativeLocker is implemented by stores that carry their own blocking
// locker (the memory backend's FIFO queues). Shared-store backends
// expose only the atomic TryLocker primitive and get a Poller instead.
type nativeLocker interface {
	Locker() lock.Locker
}

// sweeper is the janitor-facing slice of store.Store.
type sweeper interface {
	SweepExpired(ctx context.Context) (locks, records int, err error)
}

// Forwarder is the caller-facing surface: it validates events, maps
// them to upstream items, and submits them through the delivery
// strategy chosen at Build.
type Forwarder struct {
	c          *coalesce.Coalescer
	coord      *Coordinator
	gw         gateway.Gateway
	extensions *ext.Registry
	dlqService *dlq.Service
	submit     submitFunc
	workspace  string
	logger     *slog.Logger

	deadLetter bool
	bo         backoff.Strategy
	mws        []mw.Middleware

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithGateway sets the upstream gateway. Required.
func WithGateway(gw gateway.Gateway) Option {
	return func(f *Forwarder) { f.gw = gw }
}

// WithWorkspace sets the tenant identifier baked into every lock and
// job key this forwarder derives.
func WithWorkspace(ws string) Option {
	return func(f *Forwarder) { f.workspace = ws }
}

// WithExtension registers an extension with the forwarder.
func WithExtension(e ext.Extension) Option {
	return func(f *Forwarder) { f.extensions.Register(e) }
}

// WithMiddleware adds middleware to the forwarder's chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(f *Forwarder) { f.mws = append(f.mws, m) }
}

// WithBackoff sets the lock-poll backoff strategy for shared-store
// backends. If not set, backoff.DefaultStrategy() is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(f *Forwarder) { f.bo = b }
}

// WithDeadLetter enables dead-letter capture of writes that failed
// terminally at the upstream.
func WithDeadLetter(enabled bool) Option {
	return func(f *Forwarder) { f.deadLetter = enabled }
}

// WithTracerProvider sets a custom OTel TracerProvider for the forwarder.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Forwarder) { f.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the forwarder.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(f *Forwarder) { f.meterProvider = mp }
}

// Build creates a Forwarder from an existing Coalescer.
// The Coalescer's store must implement lock.TryLocker,
// directory.Directory, and dlq.Store.
func Build(c *coalesce.Coalescer, opts ...Option) (*Forwarder, error) {
	logger := c.Logger()
	st := c.Store()

	if st == nil {
		return nil, coalesce.ErrNoStore
	}

	// Type-assert the store to get the lock.TryLocker interface.
	tl, ok := st.(lock.TryLocker)
	if !ok {
		return nil, fmt.Errorf("coalesce: store does not implement lock.TryLocker")
	}

	// Type-assert the store to get the directory.Directory interface.
	dir, ok := st.(directory.Directory)
	if !ok {
		return nil, fmt.Errorf("coalesce: store does not implement directory.Directory")
	}

	// Type-assert the store to get the dlq.Store interface.
	ds, ok := st.(dlq.Store)
	if !ok {
		return nil, fmt.Errorf("coalesce: store does not implement dlq.Store")
	}

	f := &Forwarder{
		c:          c,
		extensions: ext.NewRegistry(logger),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.gw == nil {
		return nil, coalesce.ErrNoGateway
	}

	// Default backoff strategy if none provided.
	if f.bo == nil {
		f.bo = backoff.DefaultStrategy()
	}

	// A store with a native blocking locker keeps strict FIFO handoff;
	// shared-store backends poll the atomic primitive.
	var locker lock.Locker
	if nl, ok := st.(nativeLocker); ok {
		locker = nl.Locker()
	} else {
		locker = lock.NewPoller(tl, lock.WithStrategy(f.bo), lock.WithLogger(logger))
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if f.tracerProvider != nil {
		tracer := f.tracerProvider.Tracer("github.com/xraph/coalesce")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if f.meterProvider != nil {
		meter := f.meterProvider.Meter("github.com/xraph/coalesce")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if f.meterProvider != nil {
		meter := f.meterProvider.Meter("github.com/xraph/coalesce/observability")
		obsExt = observability.NewMetricsExtensionWithMeter(meter)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	f.extensions.Register(obsExt)

	config := c.Config()

	// Build default middleware stack: recover → tracing → metrics →
	// logging → scope → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Scope(),
		mw.Timeout(logger, config.WriteTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(f.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, f.mws...)

	f.coord = NewCoordinator(
		locker, dir, f.gw, f.extensions, logger,
		config.LockTTL, config.LockWait, config.JobWindow, config.TTLMargin,
		allMws...,
	)

	// Create the DLQ service; replays re-enter the state machine.
	f.dlqService = dlq.NewService(ds, f.coord.Run)
	f.coord.dlq = f.dlqService
	f.coord.deadLetter = f.deadLetter

	// Fix the delivery strategy once, at construction.
	switch config.Mode {
	case coalesce.ModeSingle:
		f.submit = f.submitSingle
	default:
		f.submit = f.submitBulk
	}

	// Create the expiry janitor for stores that need sweeping.
	if sw, ok := st.(sweeper); ok && config.SweepSchedule != "" {
		jan, err := janitor.New(sw, config.SweepSchedule, janitor.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("coalesce: sweep schedule %q: %w", config.SweepSchedule, err)
		}
		c.SetJanitor(jan)
	}

	// Wire back into the Coalescer.
	c.SetExtensions(f.extensions)

	return f, nil
}

// Identify forwards a profile upsert.
func (f *Forwarder) Identify(ctx context.Context, ev *event.Identify) (*Result, error) {
	return f.forward(ctx, ev)
}

// Track forwards a tracked event.
func (f *Forwarder) Track(ctx context.Context, ev *event.Track) (*Result, error) {
	return f.forward(ctx, ev)
}

// Group forwards a company attachment.
func (f *Forwarder) Group(ctx context.Context, ev *event.Group) (*Result, error) {
	return f.forward(ctx, ev)
}

// Forward submits a batch of events concurrently. Events sharing a lock
// key are still totally ordered by the locks; unrelated events proceed
// in parallel. The first error cancels the remaining submissions.
func (f *Forwarder) Forward(ctx context.Context, events ...event.Event) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ev := range events {
		g.Go(func() error {
			_, err := f.forward(gctx, ev)
			return err
		})
	}
	return g.Wait()
}

// forward validates and maps one event, then submits it through the
// delivery strategy.
func (f *Forwarder) forward(ctx context.Context, ev event.Event) (*Result, error) {
	item, err := payload.ForEvent(ev)
	if err != nil {
		return nil, err
	}

	op, err := event.NewOperation(f.workspace, ev, []event.Item{item})
	if err != nil {
		return nil, err
	}

	f.extensions.EmitWriteReceived(ctx, op)
	return f.submit(ctx, op)
}

// submitBulk runs the operation through the coordinator state machine.
func (f *Forwarder) submitBulk(ctx context.Context, op *event.Operation) (*Result, error) {
	job, err := f.coord.Run(ctx, op)
	if err != nil {
		return nil, err
	}
	return &Result{Job: job}, nil
}

// submitSingle writes the operation's record directly, with no locking
// and no job directory involved.
func (f *Forwarder) submitSingle(ctx context.Context, op *event.Operation) (*Result, error) {
	data := op.Items[0].Data

	var (
		resp *gateway.Response
		err  error
	)
	if op.DataType == event.DataTypeEvents {
		resp, err = f.gw.TrackEvent(ctx, data)
	} else {
		resp, err = f.gw.SaveUser(ctx, data)
	}
	if err != nil {
		f.extensions.EmitWriteFailed(ctx, op, err)
		return nil, err
	}

	f.extensions.EmitWriteCompleted(ctx, op, 0)
	return &Result{Response: resp}, nil
}

// Extensions returns the extension registry.
func (f *Forwarder) Extensions() *ext.Registry { return f.extensions }

// DLQ returns the dead letter queue service.
func (f *Forwarder) DLQ() *dlq.Service { return f.dlqService }
