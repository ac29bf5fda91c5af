// Package main provides the entry point for the traceframe CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/traceframe-dev/traceframe/cmd/traceframe/commands"
	"github.com/traceframe-dev/traceframe/pkg/observability"
	"github.com/traceframe-dev/traceframe/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	providers, err := initObservability()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: init observability: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "traceframe",
		Short: "traceframe analysis core - multi-channel time-series inspection",
		Long: `traceframe is a demonstration and integration-test harness over the
analysis core: loading project archives, running filters, computing
statistics, and validating data quality from the command line.

Commands:
  load      Load a project archive and print its summary
  filter    Run one filter condition end-to-end and print the matched samples
  stats     Print the Statistics Engine output for one signal
  validate  Run the Data Validator over every column and print a summary
  render    Render a signal to a standalone HTML chart (debug aid)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewLoadCommand(providers.Logger))
	rootCmd.AddCommand(commands.NewFilterCommand(providers.Logger))
	rootCmd.AddCommand(commands.NewStatsCommand(providers.Logger))
	rootCmd.AddCommand(commands.NewValidateCommand(providers.Logger))
	rootCmd.AddCommand(commands.NewRenderCommand(providers.Logger))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initObservability builds the process-wide observability providers: a
// structured logger, and a Prometheus-backed (or noop) meter provider
// registered globally via otel.SetMeterProvider, so packages that look up
// their meter by name (e.g. pkg/orchestrator) pick it up without any
// explicit threading.
func initObservability() (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeCLI
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.PrometheusEnabled = os.Getenv("TRACEFRAME_METRICS_ENABLED") == "true"

	return observability.Init(cfg)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "traceframe %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
