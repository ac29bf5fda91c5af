// Package session is the glue layer for one open project: it owns the
// Column Store, Signal Registry, Task Orchestrator, Event Bus, Cursor
// Controller, Filter Engine, Segment Applier, and the Project Archive,
// Data Validator, and Checkpoint Manager that sit around them, and exposes
// the operations a caller (the CLI, or any future UI collaborator) needs
// without reaching into any one package directly.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/traceframe-dev/traceframe/pkg/alg/interval"
	"github.com/traceframe-dev/traceframe/pkg/archive"
	"github.com/traceframe-dev/traceframe/pkg/checkpoint"
	"github.com/traceframe-dev/traceframe/pkg/columnstore"
	"github.com/traceframe-dev/traceframe/pkg/config"
	"github.com/traceframe-dev/traceframe/pkg/cursor"
	"github.com/traceframe-dev/traceframe/pkg/deviation"
	"github.com/traceframe-dev/traceframe/pkg/eventbus"
	"github.com/traceframe-dev/traceframe/pkg/filterengine"
	"github.com/traceframe-dev/traceframe/pkg/limits"
	"github.com/traceframe-dev/traceframe/pkg/model"
	"github.com/traceframe-dev/traceframe/pkg/orchestrator"
	"github.com/traceframe-dev/traceframe/pkg/registry"
	"github.com/traceframe-dev/traceframe/pkg/segmentapplier"
	"github.com/traceframe-dev/traceframe/pkg/statsengine"
	"github.com/traceframe-dev/traceframe/pkg/streaming"
	"github.com/traceframe-dev/traceframe/pkg/validator"
)

// Session owns every component for one open project and coordinates them.
type Session struct {
	mu sync.RWMutex

	log *slog.Logger
	bus *eventbus.Bus

	cols     *columnstore.Store
	registry *registry.Registry
	orch     *orchestrator.Orchestrator
	filters  *filterengine.Engine
	applier  *segmentapplier.Applier
	cursors  *cursor.Controller

	checkpoints *checkpoint.Manager

	cacheBudgetBytes int64

	table      model.SourceTable
	timeColumn string
	layout     []model.TabLayout
	settings   map[string]any

	originalsX map[string][]float64
	originalsY map[string][]float64

	violationIndex map[string]*interval.Tree[int, int]
}

// New builds a Session wiring every component per cfg. cfg may be nil, in
// which case config defaults apply.
func New(cfg *config.Config, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}

	if cfg == nil {
		cfg = &config.Config{}
	}

	bus := eventbus.New()
	reg := registry.New()

	hibernate, err := streaming.ParseMode(cfg.Orchestrator.HibernateMode)
	if err != nil {
		hibernate = streaming.ModeAuto
	}

	orch := orchestrator.New(orchestrator.Config{
		WorkerCount:    cfg.Orchestrator.MaxConcurrentJobs,
		DebounceWindow: cfg.Orchestrator.DebounceWindow,
		Bus:            bus,
		Logger:         log,
		Hibernate:      hibernate,
	})

	return &Session{
		log:              log,
		bus:              bus,
		registry:         reg,
		orch:             orch,
		filters:          filterengine.New(reg),
		applier:          segmentapplier.New(reg, bus),
		cursors:          cursor.New(reg, bus),
		cacheBudgetBytes: cfg.ColumnStore.CacheBudgetBytes,
		originalsX:       make(map[string][]float64),
		originalsY:       make(map[string][]float64),
		violationIndex:   make(map[string]*interval.Tree[int, int]),
	}
}

// Bus returns the event bus every state-changing operation publishes to.
func (s *Session) Bus() *eventbus.Bus { return s.bus }

// loadedSource adapts an archive.LoadResult's already-cleaned columns into
// a columnstore.Source, so load still goes through the Column Store's
// materialize-and-cache path rather than bypassing it.
type loadedSource struct {
	table   model.SourceTable
	columns map[string][]float64
}

func (l loadedSource) ColumnNames() []string { return l.table.ColumnNames }
func (l loadedSource) RowCount() int         { return l.table.RowCount }

func (l loadedSource) ColumnType(name string) (model.ColumnType, bool) {
	t, ok := l.table.ColumnTypes[name]

	return t, ok
}

func (l loadedSource) RawColumn(name string) ([]any, bool) {
	col, ok := l.columns[name]
	if !ok {
		return nil, false
	}

	out := make([]any, len(col))
	for i, v := range col {
		out[i] = v
	}

	return out, true
}

// LoadProject opens a .mpai project archive, designates timeColumn as the
// shared time axis, and registers every other column as a Signal.
func (s *Session) LoadProject(path, timeColumn string) error {
	result, err := archive.Load(path)
	if err != nil {
		return err
	}

	if _, ok := result.Table.ColumnTypes[timeColumn]; !ok {
		return fmt.Errorf("%w: time column %q not present in archive", model.ErrUnknownColumn, timeColumn)
	}

	source := loadedSource{table: result.Table, columns: result.Columns}
	cols := columnstore.New(source, s.cacheBudgetBytes, s.log)

	timeData, err := cols.Get(timeColumn)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Clear()
	s.originalsX = make(map[string][]float64)
	s.originalsY = make(map[string][]float64)
	s.violationIndex = make(map[string]*interval.Tree[int, int])

	for _, name := range result.Table.ColumnNames {
		if name == timeColumn {
			continue
		}

		yData, err := cols.Get(name)
		if err != nil {
			return err
		}

		if err := s.registry.Add(name, timeData, yData, nil); err != nil {
			return fmt.Errorf("register signal %s: %w", name, err)
		}

		x := make([]float64, len(timeData))
		copy(x, timeData)

		y := make([]float64, len(yData))
		copy(y, yData)

		s.originalsX[name] = x
		s.originalsY[name] = y
	}

	s.cols = cols
	s.table = result.Table
	s.timeColumn = timeColumn
	s.layout = result.Layout.Tabs
	s.settings = result.Layout.Settings

	s.restoreCursorState(result.Layout.Cursor)

	s.bus.Publish(eventbus.TopicDataLoaded, nil)

	return nil
}

func (s *Session) restoreCursorState(state *model.CursorState) {
	if state == nil || state.Mode != model.CursorDual {
		s.cursors.SetModeNone()

		return
	}

	s.cursors.SetModeDual(0, 1)
	s.cursors.SetSnapEnabled(state.SnapEnabled)

	if state.C1 != nil {
		s.cursors.Drag(cursor.Cursor1, *state.C1)
	}

	if state.C2 != nil {
		s.cursors.Drag(cursor.Cursor2, *state.C2)
	}
}

// sessionColumns adapts the live registry (plus the time axis) into an
// archive.ColumnSource for SaveProject.
type sessionColumns struct {
	s *Session
}

func (c sessionColumns) Columns() []string { return c.s.table.ColumnNames }

func (c sessionColumns) Column(name string) ([]float64, error) {
	if name == c.s.timeColumn {
		for _, n := range c.s.table.ColumnNames {
			if n == c.s.timeColumn {
				continue
			}

			sig, err := c.s.registry.Get(n)
			if err == nil {
				return sig.XData, nil
			}
		}

		return nil, model.ErrUnknownColumn
	}

	sig, err := c.s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	return sig.YData, nil
}

// SaveProject writes the current project (columns, layout, cursor state,
// and settings) to a new .mpai archive at path.
func (s *Session) SaveProject(path string, extraMetadata map[string]any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layoutState := archive.LayoutState{
		Tabs:     s.layout,
		Settings: s.settings,
	}

	cursorState := s.cursors.State()
	layoutState.Cursor = &cursorState

	return archive.Save(path, sessionColumns{s: s}, s.table, layoutState, extraMetadata)
}

// SetLayout replaces the tab layout tracked for the next SaveProject.
func (s *Session) SetLayout(layout []model.TabLayout) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layout = layout
}

// Layout returns the tab layout tracked for the next SaveProject.
func (s *Session) Layout() []model.TabLayout {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.layout
}

// ApplyFilter runs spec's conditions against signalNames through the
// orchestrator's debounced worker pool, then realizes the resulting
// segments via the Segment Applier, invoking onDone with the outcome.
// onDone never runs for a submission that is superseded before its
// debounce window elapses.
func (s *Session) ApplyFilter(spec *model.FilterSpec, signalNames []string, onDone func(*segmentapplier.ApplyResult, error)) {
	work := func(_ context.Context, report func(percent int)) ([]model.Segment, error) {
		result, err := s.filters.Evaluate(spec)
		if err != nil {
			return nil, err
		}

		report(100)

		return result.Segments, nil
	}

	callback := func(segments []model.Segment, err error) {
		if err != nil {
			onDone(nil, err)

			return
		}

		res, applyErr := s.applier.Apply(spec.TabID, spec.GraphID, spec.Mode, signalNames, segments)
		onDone(res, applyErr)
	}

	s.orch.SubmitFilterJob(spec.Identity(), work, callback)
}

// ClearConcatenation reverts signalNames to their load-time original
// series and releases the tab's concatenated-filter lock, if held.
func (s *Session) ClearConcatenation(tabID string, signalNames []string) error {
	s.mu.RLock()
	originalsX, originalsY := s.originalsX, s.originalsY
	s.mu.RUnlock()

	s.filters.ClearConcatenation(tabID)

	return s.applier.Clear(tabID, signalNames, originalsX, originalsY)
}

// ComputeLimits returns the warning-threshold violations for a signal.
func (s *Session) ComputeLimits(signalName string, cfg model.LimitConfig) ([]limits.Violation, error) {
	sig, err := s.registry.Get(signalName)
	if err != nil {
		return nil, err
	}

	violations := limits.Compute(sig.XData, sig.YData, cfg)

	s.mu.Lock()
	s.violationIndex[signalName] = limits.Index(violations)
	s.mu.Unlock()

	s.bus.Publish(eventbus.TopicLimitsChanged, eventbus.LimitsChangedPayload{GraphID: signalName})

	return violations, nil
}

// ViolationAt reports whether sampleIndex falls inside a limit violation
// last computed for signalName, via the violation interval index built by
// ComputeLimits. Returns false if ComputeLimits has not run for the
// signal yet.
func (s *Session) ViolationAt(signalName string, sampleIndex int) bool {
	s.mu.RLock()
	tree, ok := s.violationIndex[signalName]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	return len(tree.QueryPoint(sampleIndex)) > 0
}

// DeviationResult bundles the Deviation Engine's outputs for one signal.
type DeviationResult struct {
	Trend       []float64
	Bands       []deviation.Band
	Alerts      []deviation.Alert
	RedSegments []deviation.RedSegment
}

// ComputeDeviation runs trend/band/fluctuation analysis for a signal.
func (s *Session) ComputeDeviation(signalName string, cfg model.DeviationConfig) (DeviationResult, error) {
	sig, err := s.registry.Get(signalName)
	if err != nil {
		return DeviationResult{}, err
	}

	trend, bands, alerts, reds := deviation.Compute(sig.YData, cfg)

	s.bus.Publish(eventbus.TopicDeviationChanged, eventbus.DeviationChangedPayload{GraphID: signalName})

	return DeviationResult{Trend: trend, Bands: bands, Alerts: alerts, RedSegments: reds}, nil
}

// ComputeStats returns the descriptive statistics for a signal.
func (s *Session) ComputeStats(signalName string, opts statsengine.Options) (map[string]float64, error) {
	sig, err := s.registry.Get(signalName)
	if err != nil {
		return nil, err
	}

	stats := statsengine.Compute(sig.XData, sig.YData, opts)

	s.bus.Publish(eventbus.TopicStatsUpdated, eventbus.StatsUpdatedPayload{Signal: signalName, Stats: stats})

	return stats, nil
}

// Cursors returns the Cursor Controller for direct interaction (click,
// drag, mode, snap, zoom range).
func (s *Session) Cursors() *cursor.Controller { return s.cursors }

// Signal returns the current (x, y) series for a registered signal.
func (s *Session) Signal(name string) (x, y []float64, err error) {
	sig, err := s.registry.Get(name)
	if err != nil {
		return nil, nil, err
	}

	return sig.XData, sig.YData, nil
}

// ValidateProject runs the Data Validator over every loaded column,
// stringifying each signal's values back to their textual form so
// detection runs the way it would over a freshly imported table.
func (s *Session) ValidateProject() map[string]validator.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]validator.Result, len(s.table.ColumnNames))

	for _, name := range s.table.ColumnNames {
		var data []float64

		if name == s.timeColumn {
			data = s.timeAxis()
		} else if sig, err := s.registry.Get(name); err == nil {
			data = sig.YData
		}

		values := make([]string, len(data))
		for i, v := range data {
			values[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}

		results[name] = validator.ValidateColumn(values)
	}

	return results
}

func (s *Session) timeAxis() []float64 {
	for _, name := range s.table.ColumnNames {
		if name == s.timeColumn {
			continue
		}

		if sig, err := s.registry.Get(name); err == nil {
			return sig.XData
		}
	}

	return nil
}

// EnableCheckpoints wires a checkpoint.Manager for this session's project.
func (s *Session) EnableCheckpoints(mgr *checkpoint.Manager) {
	s.mu.Lock()
	s.checkpoints = mgr
	s.mu.Unlock()
}

// SaveCheckpoint persists the current project to a temporary archive file
// and hands its bytes to the checkpoint manager.
func (s *Session) SaveCheckpoint(projectPath string, schemaVersion int) error {
	s.mu.RLock()
	mgr := s.checkpoints
	s.mu.RUnlock()

	if mgr == nil {
		return fmt.Errorf("checkpoints not enabled for this session")
	}

	tmp, err := os.CreateTemp("", "traceframe-checkpoint-*.mpai")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	tmp.Close()

	defer os.Remove(tmpPath)

	if err := s.SaveProject(tmpPath, nil); err != nil {
		return err
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}

	return mgr.Save(data, projectPath, schemaVersion)
}

// RestoreCheckpoint loads the most recent checkpoint for projectPath back
// into this session.
func (s *Session) RestoreCheckpoint(projectPath, timeColumn string, schemaVersion int) error {
	s.mu.RLock()
	mgr := s.checkpoints
	s.mu.RUnlock()

	if mgr == nil {
		return fmt.Errorf("checkpoints not enabled for this session")
	}

	data, err := mgr.Load(projectPath, schemaVersion)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "traceframe-restore-*.mpai")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return err
	}

	tmp.Close()
	defer os.Remove(tmpPath)

	return s.LoadProject(tmpPath, timeColumn)
}

// Table returns the loaded project's source table descriptor.
func (s *Session) Table() model.SourceTable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table
}

// Shutdown tears down the orchestrator's worker pool, waiting up to
// orchestrator.DefaultStopTimeout for in-flight jobs to observe
// cancellation.
func (s *Session) Shutdown() {
	s.orch.Shutdown(0)
}
