package statsengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/traceframe-dev/traceframe/pkg/statsengine"
)

func TestCompute_Scenario3ConcatenatedStats(t *testing.T) {
	t.Parallel()

	x := []float64{2, 3, 4, 7, 8}
	y := []float64{4, 9, 16, 49, 64}

	out := statsengine.Compute(x, y, statsengine.Options{})

	assert.InDelta(t, 5, out["count"], 0)
	assert.InDelta(t, 28.4, out["mean"], 1e-9)
}

func TestCompute_Scenario6DutyCycleAuto(t *testing.T) {
	t.Parallel()

	x := make([]float64, 12)
	for i := range x {
		x[i] = float64(i) * 0.1
	}

	y := []float64{0, 0, 0, 1, 1, 1, 1, 0, 0, 1, 1, 0}

	out := statsengine.Compute(x, y, statsengine.Options{DutyCycleMode: statsengine.DutyCycleAuto})

	assert.InDelta(t, 54.5454545, out["duty_cycle_percent"], 1e-4)
}

func TestCompute_EmptyRangeReturnsEmptyMap(t *testing.T) {
	t.Parallel()

	start, end := 100.0, 200.0
	out := statsengine.Compute([]float64{0, 1, 2}, []float64{1, 2, 3}, statsengine.Options{
		RangeStart: &start, RangeEnd: &end,
	})

	assert.Empty(t, out)
}

func TestCompute_DutyCycleConstantAboveThresholdIs100(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3}
	y := []float64{5, 5, 5, 5}

	out := statsengine.Compute(x, y, statsengine.Options{
		DutyCycleMode: statsengine.DutyCycleManual, DutyCycleValue: 1,
	})

	assert.InDelta(t, 100.0, out["duty_cycle_percent"], 1e-9)
}

func TestCompute_DutyCycleConstantBelowThresholdIs0(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3}
	y := []float64{1, 1, 1, 1}

	out := statsengine.Compute(x, y, statsengine.Options{
		DutyCycleMode: statsengine.DutyCycleManual, DutyCycleValue: 5,
	})

	assert.InDelta(t, 0.0, out["duty_cycle_percent"], 1e-9)
}

func TestCompute_SkewnessKurtosisOmittedBelowThreshold(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 2, 3, 4, 5}

	out := statsengine.Compute(x, y, statsengine.Options{})

	_, hasSkew := out["skewness"]
	_, hasKurt := out["kurtosis"]
	assert.False(t, hasSkew)
	assert.False(t, hasKurt)
}

func TestCompute_SkewnessKurtosisPresentAboveThreshold(t *testing.T) {
	t.Parallel()

	x := make([]float64, 15)
	y := make([]float64, 15)

	for i := range x {
		x[i] = float64(i)
		y[i] = float64(i)
	}

	out := statsengine.Compute(x, y, statsengine.Options{})

	_, hasSkew := out["skewness"]
	_, hasKurt := out["kurtosis"]
	assert.True(t, hasSkew)
	assert.True(t, hasKurt)
}
