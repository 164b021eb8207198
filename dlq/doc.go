// Package dlq provides the dead letter queue for writes that failed
// terminally at the upstream: the create call (or the create fallback
// after a failed append) was rejected. It supports inspection, replay,
// and purging.
//
// Writes that never reached the upstream decision point — configuration
// errors, missing identity, an unavailable lock — are NOT dead-lettered;
// the caller still owns those.
//
// # Entry
//
// A [Entry] captures:
//   - OpID / Kind / DataType / Workspace / UserKey: the operation identity
//   - Items: the prepared bulk items at time of failure
//   - Error: the final upstream error message
//   - FailedAt: when the terminal failure occurred
//   - ReplayedAt: set when the entry is replayed (nil if not yet replayed)
//
// # Service
//
// [Service] wraps the DLQ store with high-level operations:
//
//	svc := dlq.NewService(store, submit)
//
//	// Push is called by the forwarder on terminal upstream failure.
//	svc.Push(ctx, op, err)
//
//	// Access the underlying store for list/get/purge/count.
//	svc.DLQStore().ListDLQ(ctx, dlq.ListOpts{Limit: 50})
//
// # Replay
//
// Replaying an entry rebuilds the operation (fresh op id, same items
// and keys) and submits it through the supplied Submitter, which is the
// coordinator's run function. Replay sets ReplayedAt on the entry.
package dlq
