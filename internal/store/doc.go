// Package store provides the SQLite-backed journal of simulation runs.
//
// The journal is append-only:
//   - Runs: one row per simulation, keyed by its run id
//   - Events: every participant notification, in delivery order
//
// # Critical Patterns
//
// Logical ordering:
//   - Events are ordered by seq INTEGER, assigned by the writer, NEVER by
//     timestamps
//   - All queries include ORDER BY seq ASC so reads are identical across
//     runs of the same scenario
//
// Idempotency:
//   - (run_id, seq) is the primary key; rewriting an event is a no-op
//   - WriteRun ignores a second write of the same run id
//
// Deterministic payloads:
//   - Payloads are flat string maps stored as JSON with sorted keys and HTML
//     escaping disabled
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
