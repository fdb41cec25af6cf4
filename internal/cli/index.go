package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	Kind      string
	Case      string
	Defendant string
	Hearing   string
	Master    string
}

// IndexResult lists secondary-index rows.
type IndexResult struct {
	Kind string           `json:"kind"`
	Rows []model.IndexRow `json:"rows"`
}

func (r IndexResult) renderText(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Case", "Defendant", "Hearing", "Master Defendant"})
	for _, row := range r.Rows {
		tw.AppendRow(table.Row{row.CaseID, row.DefendantID, row.HearingID, row.MasterDefendantID})
	}
	tw.Render()
	fmt.Fprintf(w, "%d %s row(s)\n", len(r.Rows), r.Kind)
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "List secondary-index rows",
		Long: `List CaseDefendantHearing or MatchDefendantCaseHearing rows, optionally
filtered by case, defendant, hearing or master defendant.

Examples:
  progression index --hearing H1
  progression index --kind MATCH_DEFENDANT_CASE_HEARING --master M2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", string(model.IndexCaseDefendantHearing), "index kind")
	cmd.Flags().StringVar(&opts.Case, "case", "", "case id")
	cmd.Flags().StringVar(&opts.Defendant, "defendant", "", "defendant id")
	cmd.Flags().StringVar(&opts.Hearing, "hearing", "", "hearing id")
	cmd.Flags().StringVar(&opts.Master, "master", "", "master defendant id")

	return cmd
}

func runIndex(opts *IndexOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	kind := model.IndexKind(opts.Kind)
	switch kind {
	case model.IndexCaseDefendantHearing, model.IndexMatchDefendantCaseHearing:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown index kind %q", opts.Kind))
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var rows []model.IndexRow
	switch {
	case opts.Master != "":
		rows, err = s.store.RowsByMaster(ctx, kind, opts.Master)
	case opts.Hearing != "":
		rows, err = s.store.RowsByHearing(ctx, kind, opts.Hearing)
	case opts.Case != "" && opts.Defendant != "":
		rows, err = s.store.RowsByPair(ctx, kind, model.CaseDefendant{CaseID: opts.Case, DefendantID: opts.Defendant})
	default:
		rows, err = s.store.Rows(ctx, kind)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query index", err)
	}

	result := IndexResult{Kind: opts.Kind, Rows: []model.IndexRow{}}
	for _, r := range rows {
		if opts.keep(r) {
			result.Rows = append(result.Rows, r)
		}
	}
	return opts.formatter(cmd).Success(result)
}

func (o *IndexOptions) keep(r model.IndexRow) bool {
	switch {
	case o.Case != "" && r.CaseID != o.Case:
		return false
	case o.Defendant != "" && r.DefendantID != o.Defendant:
		return false
	case o.Hearing != "" && r.HearingID != o.Hearing:
		return false
	case o.Master != "" && r.MasterDefendantID != o.Master:
		return false
	}
	return true
}
