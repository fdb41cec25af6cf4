// Package reconcile is the top-level orchestrator: one entry point per event
// kind, each fetching the documents it needs, running the merge, result,
// master-identity and index steps in order, and returning an Outcome to
// persist.
//
// The Reconciler never writes. Callers must apply events that touch the same
// hearing or case in arrival order and must hold per-document serialization
// while an event is in flight; internal/engine provides both.
//
// A document that cannot be found is logged and skipped; the remaining items
// of the event are still processed. Malformed deltas abort the event.
package reconcile
