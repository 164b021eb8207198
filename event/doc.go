// Package event defines the domain model for forwarded analytics
// writes: the three event shapes (identify, track, group), the bulk-job
// item and pending operation types, and the key derivation that scopes
// locking and coalescing.
//
// # Keys
//
// Every event resolves to two keys:
//
//   - LockKey, the mutual-exclusion domain. Identify and track share
//     one domain per user, so a profile write strictly precedes
//     dependent event writes for the same user. Group writes use a
//     separate domain per user so company updates never block profile
//     traffic.
//   - JobKey, the coalescing domain: workspace:dataType:userKey. Two
//     writes sharing a JobKey may land in the same open upstream bulk
//     job.
//
// The two are distinct on purpose. LockKey decides who may write at
// all; JobKey decides which job a permitted write joins. They overlap
// for some event kinds and differ for others.
//
// # Identity fallback
//
// When an event carries no user ID, its email (trimmed, lowercased) is
// the fallback identity for both keys, so users identified only by
// email still serialize and coalesce correctly. An event with neither
// is rejected with coalesce.ErrMissingIdentity before any lock or
// upstream call.
package event
