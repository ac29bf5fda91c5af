package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/traceframe-dev/traceframe/pkg/observability"
)

func TestAttributeFilterStripsBlockedKeys(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	filtered := observability.NewAttributeFilter(recorder, nil)

	tp := trace.NewTracerProvider(trace.WithSpanProcessor(filtered))
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(
		attribute.String("filter.tab_id", "t1"),
		attribute.String("email", "user@example.com"),
		attribute.String("user.name", "someone"),
	)
	span.End()

	require.NoError(t, tp.ForceFlush(ctx))
	require.Len(t, recorder.Ended(), 1)

	attrs := recorder.Ended()[0].Attributes()
	keys := make(map[string]bool)

	for _, kv := range attrs {
		keys[string(kv.Key)] = true
	}

	assert.True(t, keys["filter.tab_id"])
	assert.False(t, keys["email"])
	assert.False(t, keys["user.name"])
}
