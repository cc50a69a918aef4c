// Package timing measures durations of harness operations (a test method, a
// whole test class, a log capture) keyed by operation kind, test class and
// test method.
//
// Stop is idempotent: stopping an entry that was never started or was already
// stopped is a no-op. Completed measurements are kept in memory and, when a
// Store is attached, persisted; the SQLite store uses the pure-Go
// modernc.org/sqlite driver so no CGO toolchain is required.
package timing
