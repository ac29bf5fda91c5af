package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/traceframe-dev/traceframe/internal/session"
	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/segmentapplier"
)

const filterJobTimeout = 5 * time.Second

// NewFilterCommand builds the "filter" subcommand.
func NewFilterCommand(log *slog.Logger) *cobra.Command {
	var (
		timeColumn string
		tab        string
		graph      string
		param      string
		op         string
		value      float64
		signal     string
	)

	cmd := &cobra.Command{
		Use:   "filter <file.mpai>",
		Short: "Run one filter condition end-to-end and print the matched samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if signal == "" {
				signal = param
			}

			return runFilter(args[0], timeColumn, tab, graph, param, op, value, signal, log)
		},
	}

	cmd.Flags().StringVar(&timeColumn, timeColumnFlag, timeColumnDefault, timeColumnUsage)
	cmd.Flags().StringVar(&tab, "tab", "0", "tab id the filter targets")
	cmd.Flags().StringVar(&graph, "graph", "0", "graph id the filter targets")
	cmd.Flags().StringVar(&param, "param", "", "signal name the filter condition evaluates")
	cmd.Flags().StringVar(&op, "op", "gt", "comparison operator: gt, gte, lt, lte")
	cmd.Flags().Float64Var(&value, "value", 0, "threshold value")
	cmd.Flags().StringVar(&signal, "signal", "", "signal to realize segments for (defaults to --param)")

	return cmd
}

func parseOperator(op string) (model.Operator, model.Bound, error) {
	switch op {
	case "gt":
		return model.OpGreaterThan, model.BoundLower, nil
	case "gte":
		return model.OpGreaterOrEqual, model.BoundLower, nil
	case "lt":
		return model.OpLessThan, model.BoundUpper, nil
	case "lte":
		return model.OpLessOrEqual, model.BoundUpper, nil
	default:
		return 0, 0, fmt.Errorf("unknown operator %q: must be one of gt, gte, lt, lte", op)
	}
}

func runFilter(path, timeColumn, tab, graph, param, op string, value float64, signal string, log *slog.Logger) error {
	if param == "" {
		return fmt.Errorf("--param is required")
	}

	operator, bound, err := parseOperator(op)
	if err != nil {
		return err
	}

	sess := session.New(nil, log)
	defer sess.Shutdown()

	if err := sess.LoadProject(path, timeColumn); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	spec := &model.FilterSpec{
		TabID:   tab,
		GraphID: graph,
		Mode:    model.DisplaySegmented,
		Conditions: []model.FilterCondition{
			{Parameter: param, Ranges: []model.FilterRange{{Bound: bound, Operator: operator, Value: value}}},
		},
	}

	done := make(chan struct{})

	var (
		result *segmentapplier.ApplyResult
		runErr error
	)

	sess.ApplyFilter(spec, []string{signal}, func(res *segmentapplier.ApplyResult, err error) {
		result, runErr = res, err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(filterJobTimeout):
		return fmt.Errorf("filter job timed out")
	}

	if runErr != nil {
		return fmt.Errorf("apply filter: %w", runErr)
	}

	for _, item := range result.DrawList {
		fmt.Fprintf(os.Stdout, "%s: %d matched samples\n", item.SignalName, len(item.X))

		for i := range item.X {
			fmt.Fprintf(os.Stdout, "  %g -> %g\n", item.X[i], item.Y[i])
		}
	}

	return nil
}
