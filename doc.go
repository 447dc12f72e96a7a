// Package coordlog is the coordination log backend of a distributed
// stream-processing cluster: a durable, totally-ordered replicated log
// layered on a ZooKeeper-style hierarchical namespace, plus the auxiliary
// chunk storage, origin snapshotting, and liveness pulses peers need around
// it.
//
// A peer opens a Backend for its tenancy, bootstraps the namespace once, and
// then writes log entries, tails the log through a resumable subscriber, and
// registers its pulse:
//
//	cfg := coordlog.Config{
//	    TenancyID: "t1",
//	    Server:    true,
//	}
//	backend, err := coordlog.New(cfg)
//	if err != nil { log.Fatal(err) }
//	if err := backend.Start(ctx); err != nil { log.Fatal(err) }
//	defer backend.Close()
//
//	if err := backend.Bootstrap(ctx, baseReplica); err != nil { log.Fatal(err) }
//
//	out := make(chan coordlog.Entry, 64)
//	initial, sub, err := backend.Subscribe(ctx, out)
//	if err != nil { log.Fatal(err) }
//	defer sub.Stop()
//	for entry := range out {
//	    if entry.Err != nil { break }
//	    // apply entry to the replica state machine
//	}
//
// Log entries are opaque to the backend; the coordination service's
// sequential-node semantics assign each entry a monotonically increasing
// position, and every subscriber observes entries in that single global
// order. When entries have been garbage-collected beneath a subscriber, it
// re-seeks to the origin snapshot and continues without duplicates.
//
// Two coordination backends ship with the module: an in-memory one (the
// embedded testing server) and a local-filesystem one for durable local
// development. Both implement the same adapter contract a real
// ZooKeeper-protocol driver would.
package coordlog
