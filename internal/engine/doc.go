// Package engine hosts the reconciler: it orders incoming events, applies
// them and persists the outcome.
//
// Lanes:
// Every event carries a routing key (the hearing or case id it mutates).
// Enqueue hashes the key onto one of a fixed number of lanes. Each lane is a
// FIFO queue drained by exactly one goroutine, so events sharing a key are
// applied in arrival order while unrelated keys progress in parallel.
//
// Processing one event:
//  1. Acquire the per-key lock (in-process by default, Redis when several
//     hosts share a database).
//  2. Decode and validate the payload.
//  3. Reconcile against the stored documents.
//  4. Commit documents, index operations and the event log row in one
//     transaction.
//
// Reconcile and commit run under a single writer mutex. A hearing event may
// rewrite case documents and the other way round, so two lanes must never
// hold working copies of the same document at once.
//
// Logical clock:
// Events are stamped with a monotonic seq from Clock.Next() at enqueue time.
// The clock resumes after the highest seq in the event log.
//
// Failures are logged with full event context and recorded in the event log
// with status "failed"; the lane carries on. RetryFailed re-applies them.
package engine
