package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Failed bool
}

// LoggedEvent is one row of the event log.
type LoggedEvent struct {
	Seq    int64  `json:"seq"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Key    string `json:"key,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// EventsResult lists the event log.
type EventsResult struct {
	Events []LoggedEvent `json:"events"`
}

func (r EventsResult) renderText(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Seq", "ID", "Kind", "Key", "Status", "Error"})
	for _, ev := range r.Events {
		tw.AppendRow(table.Row{ev.Seq, ev.ID, ev.Kind, ev.Key, ev.Status, ev.Error})
	}
	tw.Render()
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the event log",
		Long: `List every applied or failed event in sequence order.

Examples:
  progression events --db ./progression.db
  progression events --failed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only list failed events")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.store.Events(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	result := EventsResult{Events: []LoggedEvent{}}
	for _, rec := range records {
		if opts.Failed && rec.Status != store.StatusFailed {
			continue
		}
		result.Events = append(result.Events, LoggedEvent{
			Seq:    rec.Seq,
			ID:     rec.Envelope.ID,
			Kind:   string(rec.Envelope.Kind),
			Key:    rec.Envelope.Key,
			Status: rec.Status,
			Error:  rec.Error,
		})
	}
	return opts.formatter(cmd).Success(result)
}

// RetryResult reports a retry run.
type RetryResult struct {
	Retried int `json:"retried"`
	Applied int `json:"applied"`
}

func (r RetryResult) String() string {
	return fmt.Sprintf("Re-applied %d of %d failed event(s)", r.Applied, r.Retried)
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-apply failed events",
		Long: `Re-apply every event whose last attempt failed, in sequence order.

Exit codes:
  0 - Every failed event now applied
  1 - Some events still fail
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetry(rootOpts, cmd)
		},
	}

	return cmd
}

func runRetry(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.store.Events(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}
	result := RetryResult{}
	for _, rec := range records {
		if rec.Status == store.StatusFailed {
			result.Retried++
		}
	}

	eng, closeLocker, err := newEngine(ctx, s.store, s.cfg, s.logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	result.Applied, err = eng.RetryFailed(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to retry events", err)
	}
	if err := opts.formatter(cmd).Success(result); err != nil {
		return err
	}
	if result.Applied < result.Retried {
		return NewExitError(ExitFailure, fmt.Sprintf("%d event(s) still failing", result.Retried-result.Applied))
	}
	return nil
}
