package orchestrator_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/orchestrator"
)

func TestSubmitFilterJob_RapidSubmissionsCollapseToLatest(t *testing.T) {
	t.Parallel()

	o := orchestrator.New(orchestrator.Config{DebounceWindow: 20 * time.Millisecond})

	identity := model.Identity{TabID: "0", GraphID: "0"}

	var calls atomic.Int32

	var lastValue atomic.Int32

	var wg sync.WaitGroup
	wg.Add(1)

	for i := 1; i <= 10; i++ {
		v := i
		work := func(ctx context.Context, report func(int)) ([]model.Segment, error) {
			return []model.Segment{{Start: float64(v), End: float64(v)}}, nil
		}

		o.SubmitFilterJob(identity, work, func(segments []model.Segment, err error) {
			calls.Add(1)
			require.NoError(t, err)
			lastValue.Store(int32(segments[0].Start))
			wg.Done()
		})
	}

	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(10), lastValue.Load())
}

func TestCancel_PreventsCallbackInvocation(t *testing.T) {
	t.Parallel()

	o := orchestrator.New(orchestrator.Config{DebounceWindow: 5 * time.Millisecond})

	identity := model.Identity{TabID: "0", GraphID: "1"}

	called := false

	work := func(ctx context.Context, report func(int)) ([]model.Segment, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	o.SubmitFilterJob(identity, work, func(segments []model.Segment, err error) {
		called = true
	})

	time.Sleep(10 * time.Millisecond)
	o.Cancel(identity)

	o.Shutdown(time.Second)

	assert.False(t, called)
}

func TestShutdown_WaitsForInFlightWorkers(t *testing.T) {
	t.Parallel()

	o := orchestrator.New(orchestrator.Config{DebounceWindow: time.Millisecond})

	identity := model.Identity{TabID: "0", GraphID: "2"}

	var finished atomic.Bool

	work := func(ctx context.Context, report func(int)) ([]model.Segment, error) {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)

		return nil, nil
	}

	o.SubmitFilterJob(identity, work, func(segments []model.Segment, err error) {})

	time.Sleep(5 * time.Millisecond)
	o.Shutdown(time.Second)

	assert.True(t, finished.Load())
}

func TestSubmitFilterJob_IndependentIdentitiesRunConcurrently(t *testing.T) {
	t.Parallel()

	o := orchestrator.New(orchestrator.Config{WorkerCount: 4, DebounceWindow: time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(2)

	for i := range 2 {
		identity := model.Identity{TabID: "0", GraphID: string(rune('a' + i))}

		work := func(ctx context.Context, report func(int)) ([]model.Segment, error) {
			return nil, nil
		}

		o.SubmitFilterJob(identity, work, func(segments []model.Segment, err error) {
			wg.Done()
		})
	}

	wg.Wait()
}
