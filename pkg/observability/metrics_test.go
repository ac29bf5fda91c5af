package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/traceframe-dev/traceframe/pkg/observability"
)

func TestREDMetricsRecordRequest(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "filter.apply", "ok", 12*time.Millisecond)
	red.RecordRequest(context.Background(), "filter.apply", "error", 3*time.Millisecond)

	var data metricdata.ResourceMetrics

	err = reader.Collect(context.Background(), &data)
	require.NoError(t, err)
	require.NotEmpty(t, data.ScopeMetrics)

	var sawCounter, sawErrors bool

	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch m.Name {
			case "traceframe.requests.total":
				sawCounter = true
			case "traceframe.errors.total":
				sawErrors = true
			}
		}
	}

	require.True(t, sawCounter)
	require.True(t, sawErrors)
}

func TestREDMetricsTrackInflight(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "stats.compute")
	done()
}
