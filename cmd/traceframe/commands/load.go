// Package commands implements the traceframe CLI's subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/traceframe-dev/traceframe/internal/session"
)

const (
	timeColumnFlag    = "time-column"
	timeColumnDefault = "time"
	timeColumnUsage   = "name of the column designated as the shared time axis"
)

// NewLoadCommand builds the "load" subcommand.
func NewLoadCommand(log *slog.Logger) *cobra.Command {
	var timeColumn string

	cmd := &cobra.Command{
		Use:   "load <file.mpai>",
		Short: "Load a project archive and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLoad(args[0], timeColumn, log)
		},
	}

	cmd.Flags().StringVar(&timeColumn, timeColumnFlag, timeColumnDefault, timeColumnUsage)

	return cmd
}

func runLoad(path, timeColumn string, log *slog.Logger) error {
	sess := session.New(nil, log)
	defer sess.Shutdown()

	if err := sess.LoadProject(path, timeColumn); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	table := sess.Table()

	bold := color.New(color.Bold)
	bold.Fprintf(os.Stdout, "%s\n", path)
	fmt.Fprintf(os.Stdout, "  rows:    %s\n", humanize.Comma(int64(table.RowCount)))
	fmt.Fprintf(os.Stdout, "  columns: %d (%v)\n", len(table.ColumnNames), table.ColumnNames)
	fmt.Fprintf(os.Stdout, "  tabs:    %d\n", len(sess.Layout()))

	return nil
}
