// Package store provides the SQLite handle, schema and migrations for a
// dealbook database.
//
// The schema holds:
//   - Deal tables: Companies, Opportunities, Funds, Contacts, Projects,
//     Tasks, Artifacts
//   - Edge tables named <From>_<To>_<relation> with (from_id, to_id)
//   - field_changes: the append-only audit ledger
//   - snapshots: immutable view captures with a canonical payload and digest
//   - app_settings: key/value rows for the local actor
//
// # Critical Patterns
//
// Single writer
//   - One open connection; every write batch runs through WithTx
//   - A failing batch leaves no trace, ledger rows included
//
// Deterministic reads
//   - Every listing query orders on a total key ending in
//     "id COLLATE BINARY" so equal timestamps still order stably
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
