// Package store provides SQLite-backed import and export for flowlog.
//
// The store is not part of evaluation: a Program is always evaluated in
// memory from scratch. The store holds:
//   - Facts: ground rows loaded into a program before it is compiled
//   - Runs: one record per exported evaluation (program hash, step count)
//   - Rows: the rendered rows of each exported relation, per run
//   - Relation digests: an order-independent hash of each exported relation
//
// # Patterns
//
// Canonical rows
//   - Every row is stored as RFC 8785 canonical JSON (ir.MarshalCanonical)
//   - Row identity within a run is ir.RowHash(relation, row)
//
// Idempotent writes
//   - UNIQUE(relation, row_json) on facts, PRIMARY KEY(run_id, relation, row_hash) on rows
//   - Inserts use ON CONFLICT DO NOTHING, so re-importing is a no-op
//
// Deterministic reads
//   - Rows are read back in the order they were derived (seq ASC)
//   - Runs are listed by id; ids are UUIDv7 and sort by creation time
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Migrations are applied in order on Open, one transaction each, and
// recorded in PRAGMA user_version.
package store
