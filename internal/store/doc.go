// Package store records harness runs in a SQLite ledger so that a
// regression's first appearance can be found after the fact.
//
// The ledger is append-only:
//   - runs: one row per harness run, keyed by run ID (UUIDv7)
//   - scenario_results: one row per executed scenario
//   - channel_results: one row per compared channel
//
// Writes are idempotent on run ID. Reads order runs by insertion sequence,
// never by wall-clock time, and scenarios by their position in the run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
