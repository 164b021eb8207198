package coalesce

import "time"

// Mode selects the delivery strategy. It is fixed when the forwarder is
// built; there is no runtime switching between the two.
type Mode string

const (
	// ModeBulk coalesces writes into shared upstream bulk jobs.
	ModeBulk Mode = "bulk"
	// ModeSingle sends each write as its own upstream request, with no
	// locking and no job directory involved.
	ModeSingle Mode = "single"
)

// Config holds configuration for the Coalescer.
type Config struct {
	// Mode is the delivery strategy chosen at construction.
	Mode Mode

	// LockTTL is the safety-net expiry stamped on every acquired lock,
	// so a holder that crashes without releasing cannot block its key
	// forever.
	LockTTL time.Duration

	// LockWait is the maximum time an acquirer waits for a contended
	// lock before giving up with ErrLockUnavailable.
	LockWait time.Duration

	// JobWindow is the upstream bulk-job lifetime: how long a job keeps
	// accepting appends after it is opened. Used to derive directory
	// record TTLs when the upstream does not report a closing time.
	JobWindow time.Duration

	// TTLMargin is subtracted from the job window (or from the reported
	// closing time) when recording a directory entry, so the record
	// always expires before its job stops accepting appends.
	TTLMargin time.Duration

	// WriteTimeout bounds one whole write, lock wait included. Zero
	// disables the bound: an issued upstream call then always runs to
	// completion.
	WriteTimeout time.Duration

	// SweepSchedule is the janitor's cron expression for purging
	// expired locks and directory records on stores without native
	// TTL expiry.
	SweepSchedule string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeBulk,
		LockTTL:       30 * time.Second,
		LockWait:      10 * time.Second,
		JobWindow:     15 * time.Minute,
		TTLMargin:     15 * time.Second,
		SweepSchedule: "@every 1m",
	}
}
