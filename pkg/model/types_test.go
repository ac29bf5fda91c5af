package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/model"
)

func TestSignalValidate_RawStateRequiresYEqualsOriginal(t *testing.T) {
	t.Parallel()

	s := &model.Signal{
		XData:              []float64{0, 1, 2},
		YData:              []float64{1, 2, 3},
		OriginalY:          []float64{1, 2, 3},
		NormalizationState: model.NormalizationRaw,
	}
	require.NoError(t, s.Validate())

	s.YData[0] = 99
	assert.ErrorIs(t, s.Validate(), model.ErrInvalidRange)
}

func TestSignalValidate_RequiresStrictlyAscendingX(t *testing.T) {
	t.Parallel()

	s := &model.Signal{
		XData:     []float64{0, 1, 1},
		YData:     []float64{1, 2, 3},
		OriginalY: []float64{1, 2, 3},
	}
	assert.ErrorIs(t, s.Validate(), model.ErrInvalidRange)
}

func TestSignalValidate_RequiresEqualLengths(t *testing.T) {
	t.Parallel()

	s := &model.Signal{
		XData:     []float64{0, 1, 2},
		YData:     []float64{1, 2},
		OriginalY: []float64{1, 2, 3},
	}
	assert.ErrorIs(t, s.Validate(), model.ErrInvalidRange)
}

func TestCursorStateValidate_NoneModeForbidsCursors(t *testing.T) {
	t.Parallel()

	c1 := 1.5
	cs := &model.CursorState{Mode: model.CursorNone, C1: &c1}
	assert.ErrorIs(t, cs.Validate(), model.ErrInvalidRange)

	cs2 := &model.CursorState{Mode: model.CursorNone}
	assert.NoError(t, cs2.Validate())
}

func TestOperatorApply(t *testing.T) {
	t.Parallel()

	assert.True(t, model.OpGreaterThan.Apply(5, 3))
	assert.False(t, model.OpGreaterThan.Apply(3, 3))
	assert.True(t, model.OpGreaterOrEqual.Apply(3, 3))
	assert.True(t, model.OpLessThan.Apply(2, 3))
	assert.True(t, model.OpLessOrEqual.Apply(3, 3))
}

func TestFilterSpecIdentity(t *testing.T) {
	t.Parallel()

	f := &model.FilterSpec{TabID: "tab-1", GraphID: "2"}
	assert.Equal(t, model.Identity{TabID: "tab-1", GraphID: "2"}, f.Identity())
}

func TestIdentityString(t *testing.T) {
	t.Parallel()

	id := model.NewIdentity("tab-1", 3)
	assert.Equal(t, "tab-1/3", id.String())
}

func TestDisplayModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "segmented", model.DisplaySegmented.String())
	assert.Equal(t, "concatenated", model.DisplayConcatenated.String())
}
