package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/observability"
)

func TestInitNoopWhenPrometheusDisabled(t *testing.T) {
	cfg := observability.DefaultConfig()
	cfg.ServiceName = "traceframe-test"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.Registerer)

	err = providers.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestInitWiresPrometheusRegisterer(t *testing.T) {
	cfg := observability.DefaultConfig()
	cfg.ServiceName = "traceframe-test"
	cfg.PrometheusEnabled = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.Registerer)

	met, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	met.RecordRequest(context.Background(), "filter.apply", "ok", 0)

	err = providers.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestParseOTLPHeaders(t *testing.T) {
	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t, map[string]string{"x-api-key": "abc"}, observability.ParseOTLPHeaders("x-api-key=abc"))
	assert.Equal(t,
		map[string]string{"a": "1", "b": "2"},
		observability.ParseOTLPHeaders(" a=1 , b=2 "),
	)
}
