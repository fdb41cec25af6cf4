package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/hmcts/cpp-context-progression-sub010/internal/engine"
	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Seed documents and index rows
//  2. Apply each event through the engine, checking its expectation
//  3. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := seed(ctx, st, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to seed setup: %w", err)
	}

	eng, err := engine.New(ctx, st,
		engine.WithLanes(1),
		engine.WithClock(engine.NewClock()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Events {
		env, err := envelope(step)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}

		res, err := eng.Process(ctx, env)
		result.Trace = append(result.Trace, traceOf(env.ID, step.Kind, res.Event.Seq, res.Outcome, err))

		switch {
		case err == nil && step.Expect != ExpectApplied:
			result.AddError(fmt.Sprintf("events[%d] %s: expected %s, got applied", i, step.ID, step.Expect))
		case err != nil && step.Expect == ExpectApplied:
			result.AddError(fmt.Sprintf("events[%d] %s: expected applied, got error: %v", i, step.ID, err))
		case err != nil && step.Expect == ExpectMalformed && !model.IsMalformed(err):
			result.AddError(fmt.Sprintf("events[%d] %s: expected malformed, got: %v", i, step.ID, err))
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func envelope(step EventStep) (event.Envelope, error) {
	payload, err := json.Marshal(step.Payload)
	if err != nil {
		return event.Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return event.Envelope{ID: step.ID, Kind: event.Kind(step.Kind), Payload: payload}, nil
}

func seed(ctx context.Context, st *store.Store, setup Setup) error {
	for i, doc := range setup.Hearings {
		var h model.Hearing
		if err := convert(doc, &h); err != nil {
			return fmt.Errorf("hearings[%d]: %w", i, err)
		}
		if _, err := st.SaveHearing(ctx, &h); err != nil {
			return err
		}
	}
	for i, doc := range setup.ProsecutionCases {
		var c model.ProsecutionCase
		if err := convert(doc, &c); err != nil {
			return fmt.Errorf("prosecution_cases[%d]: %w", i, err)
		}
		if _, err := st.SaveProsecutionCase(ctx, &c); err != nil {
			return err
		}
	}

	ops := make([]model.IndexOp, len(setup.Index))
	for i, r := range setup.Index {
		ops[i] = model.IndexOp{Op: model.IndexInsert, Row: r.Row()}
	}
	return st.ApplyIndexOps(ctx, ops)
}

// convert maps a YAML-decoded document onto a model type via its JSON form.
func convert(doc map[string]any, dst any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
