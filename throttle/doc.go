// Package throttle enforces per-data-type and per-workspace limits on
// upstream calls.
//
// Every create, append, and single-record write consumes one slot for its
// data type ("users" or "events") for the duration of the HTTP round trip.
// Limits keep a burst of flushes from saturating the upstream or tripping
// its own rate limiting.
//
// # Per-Data-Type Configuration
//
// Use [Config] to set per-data-type rate limits and in-flight caps:
//
//	throttle.Config{
//	    DataType:    "events",
//	    MaxInFlight: 5,      // max 5 concurrent event writes
//	    RateLimit:   10,     // max 10 writes/s for this data type
//	    RateBurst:   20,     // allow bursts up to 20
//	}
//
// Pass the manager to the gateway client:
//
//	m := throttle.NewManager(
//	    throttle.Config{DataType: "users", MaxInFlight: 20},
//	    throttle.Config{DataType: "events", RateLimit: 5, RateBurst: 10},
//	)
//	gw, err := gateway.NewClient(baseURL, token, gateway.WithThrottle(m))
//
// # Manager
//
// [Manager] checks limits at call time. It uses a token-bucket rate
// limiter (golang.org/x/time/rate) and an in-flight gate for concurrency
// limits.
//
//	m := throttle.NewManager(configs...)
//	if m.Acquire(dataType, workspace) {
//	    defer m.Release(dataType, workspace)
//	    // perform the upstream call
//	}
//
// Data types without a [Config] have no limits.
package throttle
