package filterengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/filterengine"
	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/registry"
)

func cond(param string, op model.Operator, value float64) model.FilterCondition {
	return model.FilterCondition{
		Parameter: param,
		Ranges:    []model.FilterRange{{Operator: op, Value: value}},
	}
}

func TestEvaluate_SingleConditionSegmentConstruction(t *testing.T) {
	t.Parallel()

	r := registry.New()
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	a := []float64{0, 5, 15, 25, 10, 5, 20, 30, 5, 0}
	require.NoError(t, r.Add("A", x, a, nil))

	eng := filterengine.New(r)

	// A > 10 AND A < 25, modeled as two single-range conditions combined by
	// AND across conditions.
	spec := &model.FilterSpec{
		TabID:   "tab-0",
		GraphID: "0",
		Mode:    model.DisplaySegmented,
		Conditions: []model.FilterCondition{
			cond("A", model.OpGreaterThan, 10),
			cond("A", model.OpLessThan, 25),
		},
	}

	result, err := eng.Evaluate(spec)
	require.NoError(t, err)
	assert.Equal(t, []model.Segment{{Start: 2, End: 2}, {Start: 6, End: 6}}, result.Segments)
}

func TestEvaluate_TwoParameterAND(t *testing.T) {
	t.Parallel()

	r := registry.New()
	x := []float64{0, 1, 2, 3, 4}
	require.NoError(t, r.Add("A", x, []float64{1, 2, 3, 4, 5}, nil))
	require.NoError(t, r.Add("B", x, []float64{5, 5, 5, 1, 1}, nil))

	eng := filterengine.New(r)

	spec := &model.FilterSpec{
		TabID: "tab-0", GraphID: "0", Mode: model.DisplaySegmented,
		Conditions: []model.FilterCondition{
			cond("A", model.OpGreaterOrEqual, 3),
			cond("B", model.OpGreaterOrEqual, 3),
		},
	}

	result, err := eng.Evaluate(spec)
	require.NoError(t, err)
	assert.Equal(t, []model.Segment{{Start: 2, End: 2}}, result.Segments)
}

func TestEvaluate_EmptyConditionsProducesNoSegments(t *testing.T) {
	t.Parallel()

	r := registry.New()
	eng := filterengine.New(r)

	spec := &model.FilterSpec{TabID: "t", GraphID: "0", Mode: model.DisplaySegmented}

	result, err := eng.Evaluate(spec)
	require.NoError(t, err)
	assert.Empty(t, result.Segments)
}

func TestEvaluate_UnknownParameterConditionSkipped(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("A", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))

	eng := filterengine.New(r)

	spec := &model.FilterSpec{
		TabID: "t", GraphID: "0", Mode: model.DisplaySegmented,
		Conditions: []model.FilterCondition{
			cond("unknown", model.OpGreaterThan, 0),
		},
	}

	result, err := eng.Evaluate(spec)
	require.NoError(t, err)
	assert.Empty(t, result.Segments)
}

func TestEvaluate_ModeExclusionBlocksOtherTab(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("A", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))

	eng := filterengine.New(r)

	spec0 := &model.FilterSpec{
		TabID: "0", GraphID: "0", Mode: model.DisplayConcatenated,
		Conditions: []model.FilterCondition{cond("A", model.OpGreaterOrEqual, 0)},
	}
	_, err := eng.Evaluate(spec0)
	require.NoError(t, err)

	spec1 := &model.FilterSpec{
		TabID: "1", GraphID: "0", Mode: model.DisplaySegmented,
		Conditions: []model.FilterCondition{cond("A", model.OpGreaterOrEqual, 0)},
	}
	_, err = eng.Evaluate(spec1)

	var conflict *model.FilterModeConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "0", conflict.ActiveTab)
}

func TestEvaluate_ClearingConcatenationAllowsNewFilter(t *testing.T) {
	t.Parallel()

	r := registry.New()
	require.NoError(t, r.Add("A", []float64{0, 1, 2}, []float64{1, 2, 3}, nil))

	eng := filterengine.New(r)

	spec0 := &model.FilterSpec{
		TabID: "0", GraphID: "0", Mode: model.DisplayConcatenated,
		Conditions: []model.FilterCondition{cond("A", model.OpGreaterOrEqual, 0)},
	}
	_, err := eng.Evaluate(spec0)
	require.NoError(t, err)

	eng.ClearConcatenation("0")

	spec1 := &model.FilterSpec{
		TabID: "1", GraphID: "0", Mode: model.DisplaySegmented,
		Conditions: []model.FilterCondition{cond("A", model.OpGreaterOrEqual, 0)},
	}
	_, err = eng.Evaluate(spec1)
	assert.NoError(t, err)
}

func TestEvaluate_IndexSupportsPointQuery(t *testing.T) {
	t.Parallel()

	r := registry.New()
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	a := []float64{0, 5, 15, 25, 10, 5, 20, 30, 5, 0}
	require.NoError(t, r.Add("A", x, a, nil))

	eng := filterengine.New(r)
	spec := &model.FilterSpec{
		TabID: "t", GraphID: "0", Mode: model.DisplaySegmented,
		Conditions: []model.FilterCondition{
			cond("A", model.OpGreaterThan, 10),
			cond("A", model.OpLessThan, 25),
		},
	}

	result, err := eng.Evaluate(spec)
	require.NoError(t, err)

	assert.Len(t, result.Index.QueryPoint(2), 1)
	assert.Empty(t, result.Index.QueryPoint(3))
}
