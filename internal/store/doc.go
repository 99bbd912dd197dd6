// Package store provides the SQLite commit journal.
//
// The journal is append-only:
//   - Passes: one row per committed pass (id, seq, origin, unit count, tree hash)
//   - Effects: the applied effect list of each pass, in commit order
//   - Failures: passes that failed and were discarded
//
// Ordering uses the scheduler's logical seq, never timestamps. Every list
// query orders by seq ASC, id ASC COLLATE BINARY so listings are identical
// across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
