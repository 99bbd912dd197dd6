// Package engine implements the cooperative reconciliation scheduler.
//
// The Scheduler owns the update queue, the work pointer into the active
// pass, and the committed graph of every container it has rendered into.
// Callers enqueue requests with Render or a component instance's
// RequestUpdate; nothing is reconciled until the host grants time.
//
// ARCHITECTURE:
//
// Cooperative, single-threaded processing:
//  1. Requests are enqueued to a FIFO queue (any goroutine may enqueue).
//  2. PerformWork(deadline) is one grant. With no pass in flight it dequeues
//     the next request and starts a pass rooted at the container.
//  3. Units are processed one at a time while the deadline leaves more than
//     EnoughTime. Suspension happens only between two units.
//  4. When the graph is complete the committer applies the root's effect
//     list to the host, then the new graph replaces the committed one.
//
// A pass that fails (render error, panic, unit quota) is discarded: the host
// is untouched and the previous graph stays committed.
//
// INVARIANTS:
//   - The work pointer and the pending-commit slot are never both set.
//   - At most one pass starts per grant; passes run in request order.
//   - Partial work is never committed.
package engine
