package commands

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/traceframe-dev/traceframe/internal/session"
	"github.com/traceframe-dev/traceframe/pkg/validator"
)

// NewValidateCommand builds the "validate" subcommand.
func NewValidateCommand(log *slog.Logger) *cobra.Command {
	var timeColumn string

	cmd := &cobra.Command{
		Use:   "validate <file.mpai>",
		Short: "Run the Data Validator over every column and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(args[0], timeColumn, log)
		},
	}

	cmd.Flags().StringVar(&timeColumn, timeColumnFlag, timeColumnDefault, timeColumnUsage)

	return cmd
}

func runValidate(path, timeColumn string, log *slog.Logger) error {
	sess := session.New(nil, log)
	defer sess.Shutdown()

	if err := sess.LoadProject(path, timeColumn); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	results := sess.ValidateProject()

	columns := make([]string, 0, len(results))
	for name := range results {
		columns = append(columns, name)
	}

	sort.Strings(columns)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Column", "Type", "Confidence", "Valid", "Suggested Action", "Issues"})

	invalidCount := 0

	for _, name := range columns {
		res := results[name]
		if !res.IsValid {
			invalidCount++
		}

		tbl.AppendRow(table.Row{
			name,
			res.DataType.String(),
			fmt.Sprintf("%.2f", res.Confidence),
			res.IsValid,
			res.SuggestedAction.String(),
			len(res.Issues),
		})
	}

	tbl.AppendFooter(table.Row{"", "", "", "", "Total columns", len(columns)})
	tbl.Render()

	summary := validator.Summarize(results)

	if invalidCount == 0 {
		color.New(color.FgGreen).Fprintf(os.Stdout, "\n%d/%d columns valid\n", summary.ValidColumns, summary.TotalColumns)
	} else {
		color.New(color.FgYellow).Fprintf(os.Stdout, "\n%d/%d columns valid, %d flagged\n",
			summary.ValidColumns, summary.TotalColumns, invalidCount)
	}

	for _, rec := range summary.Recommendations {
		color.New(color.FgCyan).Fprintf(os.Stdout, "  - %s\n", rec)
	}

	return nil
}
