package commands

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/traceframe-dev/traceframe/internal/session"
	"github.com/traceframe-dev/traceframe/pkg/statsengine"
)

// NewStatsCommand builds the "stats" subcommand.
func NewStatsCommand(log *slog.Logger) *cobra.Command {
	var (
		timeColumn         string
		signal             string
		rangeStart         float64
		rangeEnd           float64
		hasRangeStart      bool
		hasRangeEnd        bool
		dutyCycleThreshold float64
		hasDutyCycle       bool
	)

	cmd := &cobra.Command{
		Use:   "stats <file.mpai>",
		Short: "Print the Statistics Engine output for one signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := statsengine.Options{}

			if hasRangeStart {
				opts.RangeStart = &rangeStart
			}

			if hasRangeEnd {
				opts.RangeEnd = &rangeEnd
			}

			if hasDutyCycle {
				opts.DutyCycleMode = statsengine.DutyCycleManual
				opts.DutyCycleValue = dutyCycleThreshold
			}

			return runStats(args[0], timeColumn, signal, opts, log)
		},
	}

	cmd.Flags().StringVar(&timeColumn, timeColumnFlag, timeColumnDefault, timeColumnUsage)
	cmd.Flags().StringVar(&signal, "signal", "", "signal to compute statistics for")
	cmd.Flags().Float64Var(&rangeStart, "range-start", 0, "restrict the computation to samples at or after this time")
	cmd.Flags().Float64Var(&rangeEnd, "range-end", 0, "restrict the computation to samples at or before this time")
	cmd.Flags().Float64Var(&dutyCycleThreshold, "duty-cycle-threshold", 0, "manual duty-cycle threshold (default: signal mean)")

	cmd.PreRunE = func(c *cobra.Command, _ []string) error {
		hasRangeStart = c.Flags().Changed("range-start")
		hasRangeEnd = c.Flags().Changed("range-end")
		hasDutyCycle = c.Flags().Changed("duty-cycle-threshold")

		return nil
	}

	return cmd
}

func runStats(path, timeColumn, signal string, opts statsengine.Options, log *slog.Logger) error {
	if signal == "" {
		return fmt.Errorf("--signal is required")
	}

	sess := session.New(nil, log)
	defer sess.Shutdown()

	if err := sess.LoadProject(path, timeColumn); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	stats, err := sess.ComputeStats(signal, opts)
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "%-20s %g\n", k, stats[k])
	}

	return nil
}
