// Package gateway executes writes against the upstream ingest API.
//
// The upstream accepts two write shapes. Bulk mode opens a short-lived
// job, appends batches of items to it while it remains open, and closes
// it on its own schedule (roughly fifteen minutes after opening). Single
// mode writes one record per request with no job involved. The
// coordinator picks the shape at build time; [Gateway] exposes both.
//
// # Jobs
//
// Job identifiers are minted by the upstream and treated as opaque
// strings here. A create response reports the job's closing time when
// the upstream provides one; the directory derives its record TTL from
// it. Appending to a job the upstream has already closed fails like any
// other rejected call, which is what drives the coordinator's
// append-then-create fallback.
//
// # Errors
//
// Transport failures are returned as wrapped errors. Non-2xx replies
// become [*APIError] carrying the status code, the upstream request id,
// and a capped excerpt of the response body. The gateway never retries;
// recovery decisions belong to the coordinator.
//
// # Throttling
//
// When built with [WithThrottle], every call first claims a slot from
// the [throttle.Manager] for its data type and the workspace captured
// in the context. A denied claim returns [coalesce.ErrThrottled] before
// any request is sent.
package gateway
