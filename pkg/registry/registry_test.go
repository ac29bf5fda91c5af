package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/registry"
)

func TestAddGet_CopiesOriginalYOnce(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("rpm", []float64{0, 1, 2}, []float64{10, 20, 30}, nil))

	sig, err := r.Get("rpm")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, sig.OriginalY)
	assert.Equal(t, model.NormalizationRaw, sig.NormalizationState)
}

func TestGet_UnknownSignal(t *testing.T) {
	t.Parallel()

	r := registry.New()
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, model.ErrUnknownSignal)
}

func TestRemoveAndList(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("a", []float64{0, 1}, []float64{1, 2}, nil))
	require.NoError(t, r.Add("b", []float64{0, 1}, []float64{3, 4}, nil))

	r.Remove("a")

	assert.ElementsMatch(t, []string{"b"}, r.List())
}

func TestApplyNormalization_MinMax(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("v", []float64{0, 1, 2, 3}, []float64{0, 5, 10, 20}, nil))

	require.NoError(t, r.ApplyNormalization([]string{"v"}, model.NormalizationMinMax))

	sig, err := r.Get("v")
	require.NoError(t, err)
	assert.Equal(t, model.NormalizationMinMax, sig.NormalizationState)
	assert.InDelta(t, 0.0, sig.YData[0], 1e-9)
	assert.InDelta(t, 1.0, sig.YData[3], 1e-9)
	// original_y is untouched by normalization.
	assert.Equal(t, []float64{0, 5, 10, 20}, sig.OriginalY)
}

func TestRemoveNormalization_RestoresRaw(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("v", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))
	require.NoError(t, r.ApplyNormalization([]string{"v"}, model.NormalizationZScore))

	require.NoError(t, r.RemoveNormalization([]string{"v"}))

	sig, err := r.Get("v")
	require.NoError(t, err)
	assert.Equal(t, model.NormalizationRaw, sig.NormalizationState)
	assert.Equal(t, []float64{1, 2, 3}, sig.YData)
}

func TestSetFiltered_UpdatesOriginalYToMatchNewLength(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("v", []float64{0, 1, 2, 3}, []float64{1, 2, 3, 4}, nil))

	require.NoError(t, r.SetFiltered("v", []float64{0, 2}, []float64{1, 3}))

	sig, err := r.Get("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, sig.YData)
	assert.Equal(t, []float64{1, 3}, sig.OriginalY)
}

func TestRestoreOriginals(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("v", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))
	require.NoError(t, r.SetFiltered("v", []float64{0}, []float64{1}))

	require.NoError(t, r.RestoreOriginals("v", []float64{0, 1, 2}, []float64{1, 2, 3}))

	sig, err := r.Get("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, sig.YData)
	assert.Equal(t, []float64{1, 2, 3}, sig.OriginalY)
}

func TestApplyNormalization_EqualDataGivesEqualResult(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("a", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))
	require.NoError(t, r.Add("b", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))

	require.NoError(t, r.ApplyNormalization([]string{"a"}, model.NormalizationPeak))
	require.NoError(t, r.ApplyNormalization([]string{"b"}, model.NormalizationPeak))

	sigA, _ := r.Get("a")
	sigB, _ := r.Get("b")
	assert.Equal(t, sigA.YData, sigB.YData)
}

func TestClear(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("a", []float64{0}, []float64{1}, nil))

	r.Clear()

	assert.Empty(t, r.List())
}
