// Package store provides SQLite-backed durable storage for engine journals.
//
// The store keeps an append-only log per session:
//   - Sessions: which cartridge, chart and entity ran, with the cartridge
//     content hash and initial context overrides
//   - Inputs: every start, sent event and timeout firing, accepted or not
//   - Steps: every accepted transition with its state digest
//
// # Ordering
//
// All ordering uses the engine's logical seq, never timestamps. Session ids
// are UUIDv7, so listing sessions by id lists them in creation order.
//
// # Replay
//
// Replay re-executes a session's inputs on a fresh engine and compares the
// steps it produces with the recorded ones, digest by digest.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Queries live in the embedded queries.sql and are addressed by name
// through dotsql.
package store
