package segmentapplier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/eventbus"
	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/registry"
	"github.com/traceframe-dev/traceframe/pkg/segmentapplier"
)

func xSquared(n int) ([]float64, []float64) {
	x := make([]float64, n)
	y := make([]float64, n)

	for i := range n {
		x[i] = float64(i)
		y[i] = float64(i * i)
	}

	return x, y
}

func TestApplyConcatenated_Scenario3(t *testing.T) {
	t.Parallel()

	r := registry.New()
	x, y := xSquared(10)
	require.NoError(t, r.Add("Y", x, y, nil))

	bus := eventbus.New()
	var published eventbus.ConcatenationPayload
	bus.Subscribe(eventbus.TopicConcatenationApplied, func(p any) {
		published = p.(eventbus.ConcatenationPayload)
	})

	app := segmentapplier.New(r, bus)

	segments := []model.Segment{{Start: 2, End: 4}, {Start: 7, End: 8}}
	_, err := app.Apply("0", "0", model.DisplayConcatenated, []string{"Y"}, segments)
	require.NoError(t, err)

	sig, err := r.Get("Y")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 7, 8}, sig.XData)
	assert.Equal(t, []float64{4, 9, 16, 49, 64}, sig.YData)
	assert.Equal(t, "0", published.TabID)
}

func TestApplySegmented_ProducesDrawListWithFirstLegendOnly(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("A", []float64{0, 1, 2, 3}, []float64{10, 20, 30, 40}, nil))
	require.NoError(t, r.Add("B", []float64{0, 1, 2, 3}, []float64{1, 2, 3, 4}, nil))

	app := segmentapplier.New(r, nil)

	segments := []model.Segment{{Start: 1, End: 2}}
	result, err := app.Apply("0", "0", model.DisplaySegmented, []string{"A", "B"}, segments)
	require.NoError(t, err)

	require.Len(t, result.DrawList, 2)
	assert.True(t, result.DrawList[0].LegendVisible)
	assert.False(t, result.DrawList[1].LegendVisible)
	assert.Equal(t, []float64{1, 2}, result.DrawList[0].X)
	assert.Equal(t, []float64{20, 30}, result.DrawList[0].Y)
}

func TestApplyConcatenated_EmptyResultWhenNoSamplesRemain(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("A", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))

	app := segmentapplier.New(r, nil)

	_, err := app.Apply("0", "0", model.DisplayConcatenated, []string{"A"}, nil)
	assert.ErrorIs(t, err, model.ErrEmptyResult)
}
