package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/ingest"
)

// EventProblem describes one event that would be rejected.
type EventProblem struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Events int            `json:"events"`
	Errors []EventProblem `json:"errors,omitempty"`
}

func (r ValidationResult) renderText(w io.Writer) {
	for _, p := range r.Errors {
		fmt.Fprintf(w, "events[%d] %s (%s): %s\n", p.Index, p.ID, p.Kind, p.Message)
	}
	if r.Valid {
		fmt.Fprintf(w, "%d event(s) valid\n", r.Events)
		return
	}
	fmt.Fprintf(w, "%d of %d event(s) invalid\n", len(r.Errors), r.Events)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <events-file|->",
		Short: "Check events without applying them",
		Long: `Decode every event and check its payload against the event schema and
identity rules without touching the database.

Exit codes:
  0 - Every event is valid
  1 - One or more events are malformed
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	envs, err := ingest.ReadFile(path, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeMalformed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	formatter.VerboseLog("Read %d event(s) from %s", len(envs), path)

	result := ValidationResult{Valid: true, Events: len(envs)}
	for i, env := range envs {
		if _, err := event.Decode(env); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, EventProblem{
				Index:   i,
				ID:      env.ID,
				Kind:    string(env.Kind),
				Message: err.Error(),
			})
		}
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d event(s) malformed", len(result.Errors)))
	}
	return nil
}
