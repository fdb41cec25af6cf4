package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hmcts/cpp-context-progression-sub010/internal/engine"
	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/ingest"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Concurrent bool
}

// AppliedEvent reports one event of an apply run.
type AppliedEvent struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Hearings int    `json:"hearings_written"`
	Cases    int    `json:"cases_written"`
	IndexOps int    `json:"index_ops"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// ApplyResult summarizes an apply run.
type ApplyResult struct {
	Events  []AppliedEvent `json:"events"`
	Applied int            `json:"applied"`
	Failed  int            `json:"failed"`
}

func (r ApplyResult) renderText(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Seq", "ID", "Kind", "Status", "Hearings", "Cases", "Index Ops", "Error"})
	for _, ev := range r.Events {
		tw.AppendRow(table.Row{ev.Seq, ev.ID, ev.Kind, ev.Status, ev.Hearings, ev.Cases, ev.IndexOps, ev.Error})
	}
	tw.Render()
	fmt.Fprintf(w, "Applied %d, failed %d\n", r.Applied, r.Failed)
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <events-file|->",
		Short: "Apply a file of events",
		Long: `Apply events read from a file, or stdin when the path is "-".

The file holds a JSON array of envelopes or one envelope per line:
  {"id": "...", "kind": "hearing-resulted", "key": "H1", "payload": {...}}

By default events are applied one after another in file order. With
--concurrent they are spread over the engine lanes by routing key, which
keeps the order of events sharing a key.

Exit codes:
  0 - Every event applied
  1 - One or more events failed (they are kept in the event log for retry)
  2 - Command error

Examples:
  progression apply --db ./progression.db events.json
  cat events.ndjson | progression apply --db ./progression.db -
  progression apply --concurrent --lanes 8 events.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Concurrent, "concurrent", false, "apply through the engine lanes")

	return cmd
}

func runApply(opts *ApplyOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	envs, err := ingest.ReadFile(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	formatter.VerboseLog("Read %d event(s) from %s", len(envs), path)

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	eng, closeLocker, err := newEngine(ctx, s.store, s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	var result ApplyResult
	if opts.Concurrent {
		result, err = applyConcurrent(ctx, eng, s.store, envs)
		if err != nil {
			return WrapExitError(ExitFailure, "engine error", err)
		}
	} else {
		result = applySequential(ctx, eng, envs)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d events failed", result.Failed, len(result.Events)))
	}
	return nil
}

func applySequential(ctx context.Context, eng *engine.Engine, envs []event.Envelope) ApplyResult {
	result := ApplyResult{Events: make([]AppliedEvent, 0, len(envs))}
	for _, env := range envs {
		res, err := eng.Process(ctx, env)
		ev := AppliedEvent{
			Seq:    res.Event.Seq,
			ID:     res.Event.Envelope.ID,
			Kind:   string(env.Kind),
			Status: store.StatusApplied,
		}
		if err != nil {
			ev.Status = store.StatusFailed
			ev.Error = err.Error()
			result.Failed++
		} else {
			ev.Hearings = res.Stats.HearingsWritten
			ev.Cases = res.Stats.CasesWritten
			ev.IndexOps = res.Stats.IndexOps
			ev.Skipped = len(res.Outcome.Skipped)
			result.Applied++
		}
		result.Events = append(result.Events, ev)
	}
	return result
}

// applyConcurrent feeds envs to the lanes and reports from the event log.
func applyConcurrent(ctx context.Context, eng *engine.Engine, st *store.Store, envs []event.Envelope) (ApplyResult, error) {
	start := eng.Clock().Current()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	_, feedErr := ingest.Feed(eng, envs)
	eng.Stop()
	if err := <-done; err != nil {
		return ApplyResult{}, err
	}
	if feedErr != nil {
		return ApplyResult{}, feedErr
	}

	records, err := st.Events(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	result := ApplyResult{Events: []AppliedEvent{}}
	for _, rec := range records {
		if rec.Seq <= start {
			continue
		}
		result.Events = append(result.Events, AppliedEvent{
			Seq:    rec.Seq,
			ID:     rec.Envelope.ID,
			Kind:   string(rec.Envelope.Kind),
			Status: rec.Status,
			Error:  rec.Error,
		})
		if rec.Status == store.StatusFailed {
			result.Failed++
		} else {
			result.Applied++
		}
	}
	return result, nil
}
