// Package coalesce provides per-user serialized forwarding of analytics
// events to an upstream service that accepts writes through short-lived
// bulk jobs. It offers keyed distributed locking, a shared job directory
// with TTL semantics, and a coordinator that appends to an open job when
// one exists and transparently opens a fresh one when it doesn't.
//
// Coalesce is designed as a library, not a service. Import it, configure
// a store and a gateway, and forward identify/track/group events as
// ordinary Go calls.
//
// # Quick Start
//
//	c, err := coalesce.New(
//	    coalesce.WithStore(redisStore),
//	    coalesce.WithJobWindow(15*time.Minute),
//	)
//
//	fwd, err := coordinator.Build(c, coordinator.WithGateway(gw))
//	res, err := fwd.Identify(ctx, &event.Identify{UserID: "u1", Traits: traits})
//
// # Architecture
//
// Coalesce follows a composable store pattern where each subsystem
// (lock, directory, dlq) defines its own store interface. A single
// backend implements all of them.
//
// All internal IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers. Upstream job IDs are opaque strings
// minted by the upstream and never generated here.
package coalesce
