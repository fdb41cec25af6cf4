// Package store provides SQLite-backed persistence for the read model:
// hearing and prosecution case documents, secondary-index rows and the
// applied-event log.
//
// Documents are stored as canonical JSON with a domain-separated SHA-256
// content hash. Writing a document whose hash is unchanged is a no-op.
//
// Commit applies everything one event produced (documents, index operations
// and the event log row) in a single transaction.
//
// # Deterministic reads
//
// Every multi-row query orders by its key columns with COLLATE BINARY, so
// listings are identical across runs.
//
// # Connection settings
//
//   - journal_mode=WAL
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=on
package store
