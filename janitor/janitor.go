// Package janitor sweeps expired lock entries and directory records
// out of stores without native TTL eviction (postgres, mongo, memory).
// Redis expires its own keys; its sweep is a no-op and running the
// janitor against it is harmless.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Sweeper is the store-facing slice the janitor drives.
type Sweeper interface {
	SweepExpired(ctx context.Context) (locks, records int, err error)
}

// scheduleParser supports standard 5-field cron and descriptors like
// "@every 1m".
var scheduleParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return scheduleParser.Parse(expr)
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Janitor) { j.logger = l }
}

// WithSweepTimeout bounds one sweep pass. Defaults to 30 seconds.
func WithSweepTimeout(d time.Duration) Option {
	return func(j *Janitor) { j.sweepTimeout = d }
}

// Janitor runs SweepExpired on a cron schedule until stopped.
type Janitor struct {
	sweeper      Sweeper
	schedule     cronlib.Schedule
	logger       *slog.Logger
	sweepTimeout time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Janitor firing on the given cron expression.
func New(s Sweeper, expr string, opts ...Option) (*Janitor, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("coalesce/janitor: parse schedule %q: %w", expr, err)
	}
	j := &Janitor{
		sweeper:      s,
		schedule:     schedule,
		logger:       slog.Default(),
		sweepTimeout: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Start launches the sweep goroutine.
func (j *Janitor) Start(_ context.Context) error {
	j.wg.Add(1)
	go j.loop()
	j.logger.Info("janitor started",
		slog.Time("next_sweep", j.schedule.Next(time.Now())),
	)
	return nil
}

// Stop signals the janitor to stop and waits for the goroutine to finish.
func (j *Janitor) Stop(_ context.Context) error {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Info("janitor stopped")
	return nil
}

// loop sleeps until each scheduled firing and sweeps.
func (j *Janitor) loop() {
	defer j.wg.Done()

	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-j.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			j.Sweep()
		}
	}
}

// Sweep runs one sweep pass. Exported so operators can trigger an
// out-of-schedule sweep after restoring a backend.
func (j *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.sweepTimeout)
	defer cancel()

	locks, records, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		j.logger.Error("sweep error", slog.String("error", err.Error()))
		return
	}
	if locks > 0 || records > 0 {
		j.logger.Info("swept expired entries",
			slog.Int("locks", locks),
			slog.Int("records", records),
		)
	}
}
