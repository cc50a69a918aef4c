// Package lanes implements the suite lane registry: the process-wide record
// of which test suites run concurrently in the parallel lane and which single
// suite holds the exclusive isolated lane.
//
// Parallel suites may run alongside each other (up to an optional capacity).
// An isolated suite runs alone: LockIsolated waits until every parallel suite
// has deregistered, and RegisterParallel waits while an isolated suite holds
// or is waiting for the lock. Waiters are woken by a broadcast channel that is
// closed and replaced on every state change.
package lanes
