package harness

import (
	"context"

	"github.com/hmcts/cpp-context-progression-sub010/internal/reconcile"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

// TraceEvent records what one event did.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`

	// Hearings and ProsecutionCases list the documents the outcome wrote,
	// in outcome order.
	Hearings         []string `json:"hearings,omitempty"`
	ProsecutionCases []string `json:"prosecutionCases,omitempty"`
	IndexOps         int      `json:"indexOps"`

	// Skipped lists skipped items as "kind/id".
	Skipped []string `json:"skipped,omitempty"`

	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every event met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceOf builds the trace entry for an applied or failed event.
func traceOf(id, kind string, seq int64, out *reconcile.Outcome, err error) TraceEvent {
	te := TraceEvent{Seq: seq, ID: id, Kind: kind, Status: store.StatusApplied}
	if err != nil {
		te.Status = store.StatusFailed
		te.Error = err.Error()
		return te
	}
	if out == nil {
		return te
	}
	for _, h := range out.Hearings {
		te.Hearings = append(te.Hearings, h.ID)
	}
	for _, c := range out.Cases {
		te.ProsecutionCases = append(te.ProsecutionCases, c.ID)
	}
	te.IndexOps = len(out.IndexOps)
	for _, s := range out.Skipped {
		te.Skipped = append(te.Skipped, s.Kind+"/"+s.ID)
	}
	return te
}

// AssertionContext gives assertions access to the final state.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}
