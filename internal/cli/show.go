package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// document renders a stored document as indented JSON in text mode.
type document struct {
	value any
}

func (d document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

func (d document) renderText(w io.Writer) {
	out, err := json.MarshalIndent(d.value, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", d.value)
		return
	}
	fmt.Fprintln(w, string(out))
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored document",
		Long: `Print a stored hearing or prosecution case document.

Examples:
  progression show hearing H1
  progression show case C1 --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "hearing <id>",
		Short:         "Print a hearing document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, "hearing", args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "case <id>",
		Short:         "Print a prosecution case document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, "prosecutionCase", args[0])
		},
	})

	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command, kind, id string) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var doc any
	if kind == "hearing" {
		doc, err = s.store.Hearing(ctx, id)
	} else {
		doc, err = s.store.ProsecutionCase(ctx, id)
	}
	if model.IsNotFound(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("%s %s not found", kind, id), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("%s %s not found", kind, id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}
	return formatter.Success(document{value: doc})
}
