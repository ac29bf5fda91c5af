package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/traceframe-dev/traceframe/internal/session"
)

// NewRenderCommand builds the "render" debug subcommand. Plotting is not
// part of the analysis core; this exists only so the data a session
// produces can be eyeballed without a UI.
func NewRenderCommand(log *slog.Logger) *cobra.Command {
	var (
		timeColumn string
		signal     string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "render <file.mpai>",
		Short: "Render a signal to a standalone HTML chart (debug aid)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRender(args[0], timeColumn, signal, output, log)
		},
	}

	cmd.Flags().StringVar(&timeColumn, timeColumnFlag, timeColumnDefault, timeColumnUsage)
	cmd.Flags().StringVar(&signal, "signal", "", "signal to render")
	cmd.Flags().StringVar(&output, "output", "chart.html", "path to write the rendered chart to")

	return cmd
}

func runRender(path, timeColumn, signal, output string, log *slog.Logger) error {
	if signal == "" {
		return fmt.Errorf("--signal is required")
	}

	sess := session.New(nil, log)
	defer sess.Shutdown()

	if err := sess.LoadProject(path, timeColumn); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	x, y, err := sess.Signal(signal)
	if err != nil {
		return fmt.Errorf("read signal %s: %w", signal, err)
	}

	xAxis := make([]string, len(x))
	for i, v := range x {
		xAxis[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	points := make([]opts.LineData, len(y))
	for i, v := range y {
		points[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: signal}),
		charts.WithXAxisOpts(opts.XAxis{Name: timeColumn}),
	)
	line.SetXAxis(xAxis).AddSeries(signal, points)

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	fmt.Fprintf(os.Stdout, "wrote %s\n", output)

	return nil
}
