package columnstore_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/columnstore"
	"github.com/traceframe-dev/traceframe/pkg/model"
)

type fakeSource struct {
	names  []string
	types  map[string]model.ColumnType
	values map[string][]any
}

func (f *fakeSource) ColumnNames() []string { return f.names }
func (f *fakeSource) RowCount() int {
	for _, v := range f.values {
		return len(v)
	}

	return 0
}
func (f *fakeSource) ColumnType(name string) (model.ColumnType, bool) {
	t, ok := f.types[name]

	return t, ok
}
func (f *fakeSource) RawColumn(name string) ([]any, bool) {
	v, ok := f.values[name]

	return v, ok
}

func TestStoreGet_MaterializesAndCaches(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		values: map[string][]any{
			"rpm": {1.0, 2.0, 3.0},
		},
	}

	store := columnstore.New(src, 0, nil)

	col, err := store.Get("rpm")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, col)

	col2, err := store.Get("rpm")
	require.NoError(t, err)
	assert.Equal(t, col, col2)
}

func TestStoreGet_UnknownColumn(t *testing.T) {
	t.Parallel()

	src := &fakeSource{values: map[string][]any{}}
	store := columnstore.New(src, 0, nil)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, model.ErrUnknownColumn)
}

func TestStoreGet_ForwardFillsNaN(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		values: map[string][]any{
			"temp": {math.NaN(), 10.0, math.NaN(), math.NaN(), 20.0},
		},
	}

	store := columnstore.New(src, 0, nil)

	col, err := store.Get("temp")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 10, 10, 20}, col)
}

func TestStoreGet_ReplacesInfWithNaNThenForwardFills(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		values: map[string][]any{
			"v": {5.0, math.Inf(1), math.Inf(-1)},
		},
	}

	store := columnstore.New(src, 0, nil)

	col, err := store.Get("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, col)
}

func TestStoreGet_NonCoercibleStringBecomesZero(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		values: map[string][]any{
			"label": {"foo", "bar"},
		},
	}

	store := columnstore.New(src, 0, nil)

	col, err := store.Get("label")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, col)
}

func TestStoreGet_EvictsUnderMemoryBudget(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		values: map[string][]any{
			"a": make([]any, 100),
			"b": make([]any, 100),
		},
	}

	for i := range 100 {
		src.values["a"][i] = float64(i)
		src.values["b"][i] = float64(i)
	}

	// Each column materializes to 800 bytes; a 900-byte budget holds one.
	store := columnstore.New(src, 900, nil)

	_, err := store.Get("a")
	require.NoError(t, err)

	_, err = store.Get("b")
	require.NoError(t, err)

	col, err := store.Get("a")
	require.NoError(t, err)
	assert.Len(t, col, 100, "evicted column must re-materialize rather than error")
}

func TestStoreClear(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		values: map[string][]any{"a": {1.0}},
	}

	store := columnstore.New(src, 0, nil)

	_, err := store.Get("a")
	require.NoError(t, err)

	store.Clear()

	col, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, col)
}
