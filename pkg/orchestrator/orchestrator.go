// Package orchestrator schedules filter jobs onto a bounded worker pool,
// coalescing rapid resubmissions per (tab, graph) identity with a
// debounce window and supporting cooperative cancellation, progress
// reporting, and ordered teardown.
package orchestrator

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/traceframe-dev/traceframe/pkg/eventbus"
	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/observability"
	"github.com/traceframe-dev/traceframe/pkg/streaming"
)

// instrumentationName identifies this package's tracer and meter. Observed
// spans and metrics carry it whether or not a caller has wired a real
// exporter via observability.Init; with none wired, lookups resolve to the
// noop providers otel defaults to.
const instrumentationName = "github.com/traceframe-dev/traceframe/pkg/orchestrator"

// DefaultDebounceWindow is the default per-identity coalescing window.
const DefaultDebounceWindow = 350 * time.Millisecond

// DefaultStopTimeout is how long teardown waits for cooperative stop
// before forcibly abandoning a worker.
const DefaultStopTimeout = 5 * time.Second

// Work is the unit an orchestrator worker executes. fn receives a
// cancellable context and a progress reporter; it returns segments or an
// error. fn must check ctx.Err() at condition boundaries and inside inner
// range loops.
type Work func(ctx context.Context, report func(percent int)) ([]model.Segment, error)

// Callback receives the outcome of a completed (non-cancelled) job.
type Callback func(segments []model.Segment, err error)

// job tracks one in-flight or pending submission for an identity.
type job struct {
	id     string
	cancel context.CancelFunc
	timer  *time.Timer
}

// Orchestrator is the Task Orchestrator: a fixed-size worker pool plus
// per-identity debounce and supersession bookkeeping.
type Orchestrator struct {
	mu             sync.Mutex
	jobs           map[model.Identity]*job
	debounceWindow time.Duration
	hibernate      streaming.Mode
	workers        chan struct{} // Semaphore bounding concurrent worker goroutines.
	bus            *eventbus.Bus
	log            *slog.Logger
	wg             sync.WaitGroup

	tracer     trace.Tracer
	metrics    *observability.REDMetrics
	spillGuard *streaming.SpillCleanupGuard
}

// Config configures an Orchestrator.
type Config struct {
	WorkerCount    int // 0 selects runtime.NumCPU()-1, minimum 1.
	DebounceWindow time.Duration
	Bus            *eventbus.Bus
	Logger         *slog.Logger

	// Hibernate gates the debounce-coalescing policy: ModeOff dispatches
	// every submission immediately, ModeAuto and ModeOn keep identities
	// idle for DebounceWindow before running (the default).
	Hibernate streaming.Mode

	// SpillCleaners registers jobs that write scratch files while running,
	// so Shutdown and process-level SIGINT/SIGTERM both clean them up.
	SpillCleaners []streaming.SpillCleaner
}

// New builds an Orchestrator per cfg.
func New(cfg Config) *Orchestrator {
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = max(1, runtime.NumCPU()-1)
	}

	debounce := cfg.DebounceWindow
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	metrics, err := observability.NewREDMetrics(otel.Meter(instrumentationName))
	if err != nil {
		log.Warn("orchestrator: RED metrics unavailable, running without them", "error", err)
	}

	return &Orchestrator{
		jobs:           make(map[model.Identity]*job),
		debounceWindow: debounce,
		hibernate:      cfg.Hibernate,
		workers:        make(chan struct{}, workerCount),
		bus:            cfg.Bus,
		log:            log,
		tracer:         otel.Tracer(instrumentationName),
		metrics:        metrics,
		spillGuard:     streaming.NewSpillCleanupGuard(cfg.SpillCleaners, log),
	}
}

// SubmitFilterJob registers intent to run work for identity. Rapid
// successive submissions for the same identity within the debounce
// window collapse: only the latest submission's work ever runs, and the
// superseded job's callback is never invoked.
func (o *Orchestrator) SubmitFilterJob(identity model.Identity, work Work, callback Callback) {
	o.mu.Lock()

	if existing, ok := o.jobs[identity]; ok {
		existing.cancel()

		if existing.timer != nil {
			existing.timer.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{id: uuid.NewString(), cancel: cancel}

	if o.hibernate == streaming.ModeOff {
		// Hibernation off: never let a submission sit idle, dispatch now.
		o.jobs[identity] = j
		o.mu.Unlock()
		o.runJob(identity, j, ctx, work, callback)

		return
	}

	j.timer = time.AfterFunc(o.debounceWindow, func() {
		o.runJob(identity, j, ctx, work, callback)
	})

	o.jobs[identity] = j

	o.mu.Unlock()
}

// Cancel stops the pending or running job for identity, if any. The
// job's callback is never invoked. Idempotent.
func (o *Orchestrator) Cancel(identity model.Identity) {
	o.mu.Lock()
	defer o.mu.Unlock()

	j, ok := o.jobs[identity]
	if !ok {
		return
	}

	j.cancel()

	if j.timer != nil {
		j.timer.Stop()
	}

	delete(o.jobs, identity)
}

func (o *Orchestrator) runJob(identity model.Identity, self *job, ctx context.Context, work Work, callback Callback) {
	o.workers <- struct{}{}
	o.wg.Add(1)

	defer func() {
		<-o.workers
		o.wg.Done()
	}()

	if ctx.Err() != nil {
		return
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.filter_job", trace.WithAttributes(
		attribute.String("identity", identity.String()),
		attribute.String("job_id", self.id),
	))
	defer span.End()

	start := time.Now()

	var inflightDone func()
	if o.metrics != nil {
		inflightDone = o.metrics.TrackInflight(ctx, "orchestrator.filter_job")
	}

	finish := func(status string, recordErr error) {
		if inflightDone != nil {
			inflightDone()
		}

		if o.metrics != nil {
			o.metrics.RecordRequest(ctx, "orchestrator.filter_job", status, time.Since(start))
		}

		if recordErr != nil {
			span.SetStatus(codes.Error, recordErr.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	o.log.Debug("filter job starting", "identity", identity.String(), "job_id", self.id)

	if o.bus != nil {
		o.bus.Publish(eventbus.TopicFilterStarted, eventbus.FilterStartedPayload{
			TabID: identity.TabID, GraphID: identity.GraphID,
		})
	}

	report := func(percent int) {
		if o.bus != nil {
			o.bus.Publish(eventbus.TopicFilterProgress, eventbus.FilterProgressPayload{
				TabID: identity.TabID, GraphID: identity.GraphID, Percent: percent,
			})
		}
	}

	segments, err := work(ctx, report)

	o.mu.Lock()
	// Only clear bookkeeping if this job is still the current one for the
	// identity (a newer submission may have already replaced it).
	if o.jobs[identity] == self {
		delete(o.jobs, identity)
	}
	o.mu.Unlock()

	if ctx.Err() != nil {
		// Cancelled jobs never invoke their callback.
		finish("cancelled", ctx.Err())

		return
	}

	if err != nil {
		o.log.Warn("filter job failed", "identity", identity.String(), "job_id", self.id, "error", err)
		finish("error", err)

		if o.bus != nil {
			o.bus.Publish(eventbus.TopicFilterFailed, eventbus.FilterFailedPayload{
				TabID: identity.TabID, GraphID: identity.GraphID, Reason: err.Error(),
			})
		}

		callback(nil, &model.TaskFailed{Identity: identity, Detail: err.Error()})

		return
	}

	finish("ok", nil)

	if o.bus != nil {
		payload := make([]eventbus.Segment, len(segments))
		for i, s := range segments {
			payload[i] = eventbus.Segment{Start: s.Start, End: s.End}
		}

		o.bus.Publish(eventbus.TopicFilterApplied, eventbus.FilterAppliedPayload{
			TabID: identity.TabID, GraphID: identity.GraphID, Segments: payload,
		})
	}

	callback(segments, nil)
}

// Shutdown performs ordered teardown: cancel every pending/running job,
// then wait up to timeout for workers to observe cancellation and exit.
// Workers that do not finish within timeout are abandoned (their
// goroutines may still be running, but the orchestrator no longer waits
// on them).
func (o *Orchestrator) Shutdown(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	o.mu.Lock()
	for _, j := range o.jobs {
		j.cancel()

		if j.timer != nil {
			j.timer.Stop()
		}
	}

	o.jobs = make(map[model.Identity]*job)
	o.mu.Unlock()

	done := make(chan struct{})

	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		o.log.Warn("orchestrator: shutdown timed out waiting for workers")
	}

	o.spillGuard.Close()
}
