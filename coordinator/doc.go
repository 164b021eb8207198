// Package coordinator wires all coalesce subsystems together and runs
// the per-write state machine: acquire the user's lock, consult the job
// directory, append to the open upstream job when one exists, fall back
// to opening a fresh job when the append is rejected, record the new
// job, release the lock.
//
// This package exists to break the import cycle: the root coalesce
// package defines the sentinels and Config imported by every subsystem
// and so cannot import those packages back. The coordinator package
// sits above all subsystem packages and below the application layer.
//
// Use Build() to turn a *coalesce.Coalescer into a *Forwarder:
//
//	c, _ := coalesce.New(coalesce.WithStore(s))
//	fwd, err := coordinator.Build(c, coordinator.WithGateway(gw))
//	res, err := fwd.Identify(ctx, &event.Identify{UserID: "u1"})
package coordinator
