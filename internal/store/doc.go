// Package store provides SQLite-backed durable storage for arbiter state.
//
// The store holds one engine's snapshot split across tables:
//   - patterns, philosophy: upserted on every save
//   - decisions: the append-only decision log, keyed by seq
//   - threshold_adjustments, outcomes, core_memories: append-only memory audit
//   - memory_state: the single current threshold and streak row
//
// # Append-only audit
//
// Audit rows are written with ON CONFLICT DO NOTHING and never updated or
// deleted. A save whose snapshot has fewer audit entries than the database
// fails with ErrLogAhead instead of silently diverging.
//
// # Ordering
//
// All reads are ordered: patterns by registration position, decisions by
// seq, history and outcomes by position. Never by wall-clock timestamp.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: core memories must reference a stored decision
package store
