package model

import (
	"math"
	"time"
)

// ColumnType is the element type of a source column.
type ColumnType int

const (
	ColumnFloat64 ColumnType = iota
	ColumnInt64
	ColumnBool
	ColumnString
	ColumnDatetime
)

func (t ColumnType) String() string {
	switch t {
	case ColumnFloat64:
		return "f64"
	case ColumnInt64:
		return "i64"
	case ColumnBool:
		return "bool"
	case ColumnString:
		return "string"
	case ColumnDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// NormalizationState reports which transform, if any, produced a signal's
// current y_data.
type NormalizationState int

const (
	NormalizationRaw NormalizationState = iota
	NormalizationPeak
	NormalizationRMS
	NormalizationMinMax
	NormalizationZScore
)

func (s NormalizationState) String() string {
	switch s {
	case NormalizationRaw:
		return "raw"
	case NormalizationPeak:
		return "peak"
	case NormalizationRMS:
		return "rms"
	case NormalizationMinMax:
		return "minmax"
	case NormalizationZScore:
		return "zscore"
	default:
		return "unknown"
	}
}

// DisplayMode selects how a filtered graph renders its matched ranges.
type DisplayMode int

const (
	DisplaySegmented DisplayMode = iota
	DisplayConcatenated
)

func (m DisplayMode) String() string {
	if m == DisplayConcatenated {
		return "concatenated"
	}

	return "segmented"
}

// Bound identifies which side of a range a FilterCondition range clamps.
type Bound int

const (
	BoundLower Bound = iota
	BoundUpper
)

// Operator is a comparison operator for a filter range.
type Operator int

const (
	OpGreaterThan Operator = iota
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
)

// Apply evaluates op(value, threshold).
func (op Operator) Apply(value, threshold float64) bool {
	switch op {
	case OpGreaterThan:
		return value > threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpLessThan:
		return value < threshold
	case OpLessOrEqual:
		return value <= threshold
	default:
		return false
	}
}

// SourceTable is the immutable columnar table loaded from disk.
type SourceTable struct {
	ColumnNames []string
	ColumnTypes map[string]ColumnType
	RowCount    int
}

// Signal is the unit of analysis: a named, time-aligned series.
type Signal struct {
	Name               string
	XData              []float64
	YData              []float64
	OriginalY          []float64
	Metadata           map[string]string
	NormalizationState NormalizationState
}

// Validate enforces the Signal invariants from the data model: equal
// lengths, strictly ascending x, and raw state implying y == original_y.
func (s *Signal) Validate() error {
	if len(s.XData) != len(s.YData) || len(s.XData) != len(s.OriginalY) {
		return ErrInvalidRange
	}

	for i := 1; i < len(s.XData); i++ {
		if s.XData[i] <= s.XData[i-1] {
			return ErrInvalidRange
		}
	}

	for _, x := range s.XData {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ErrInvalidRange
		}
	}

	if s.NormalizationState == NormalizationRaw {
		for i := range s.YData {
			if s.YData[i] != s.OriginalY[i] {
				return ErrInvalidRange
			}
		}
	}

	return nil
}

// FilterRange is one {bound, operator, value} clause within a condition.
type FilterRange struct {
	Bound    Bound    `json:"bound"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// FilterCondition is a per-parameter clause: a signal name and its ranges,
// combined by OR within the condition.
type FilterCondition struct {
	Parameter string        `json:"parameter"`
	Ranges    []FilterRange `json:"ranges"`
}

// FilterSpec is the complete filter configuration for one graph.
type FilterSpec struct {
	Conditions []FilterCondition `json:"conditions"`
	Mode       DisplayMode       `json:"mode"`
	TabID      string            `json:"tab_id"`
	GraphID    string            `json:"graph_id"`
}

// Identity returns the (tab, graph) pair this spec targets.
func (f *FilterSpec) Identity() Identity {
	return Identity{TabID: f.TabID, GraphID: f.GraphID}
}

// Segment is a closed time interval [Start, End] produced by a filter
// evaluation. An ordered list of segments is always non-overlapping.
type Segment struct {
	Start float64
	End   float64
}

// LimitConfig holds per-signal warning thresholds.
type LimitConfig struct {
	WarningMin float64 `json:"warning_min"`
	WarningMax float64 `json:"warning_max"`
	Enabled    bool    `json:"enabled"`
}

// TrendConfig controls the Deviation Engine's least-squares trend line.
type TrendConfig struct {
	Enabled     bool `json:"enabled"`
	Sensitivity int  `json:"sensitivity"` // 1..5
}

// FluctuationConfig controls red-segment fluctuation detection.
type FluctuationConfig struct {
	Enabled       bool    `json:"enabled"`
	WindowSamples int     `json:"window_samples"`
	ThresholdPct  float64 `json:"threshold_pct"`
	Highlight     bool    `json:"highlight"`
	RedHighlight  bool    `json:"red_highlight"`
}

// BandsConfig controls rolling mean/threshold band rendering.
type BandsConfig struct {
	Enabled      bool    `json:"enabled"`
	Transparency float64 `json:"transparency"`
}

// DeviationConfig is the per-graph deviation analysis configuration.
type DeviationConfig struct {
	Trend              TrendConfig       `json:"trend"`
	Fluctuation        FluctuationConfig `json:"fluctuation"`
	Bands              BandsConfig       `json:"bands"`
	SelectedParameters []string          `json:"selected_parameters"`
}

// CursorMode selects whether zero or two cursors are active.
type CursorMode int

const (
	CursorNone CursorMode = iota
	CursorDual
)

// CursorState is the dual-cursor controller's state.
type CursorState struct {
	Mode        CursorMode `json:"mode"`
	C1          *float64   `json:"c1,omitempty"`
	C2          *float64   `json:"c2,omitempty"`
	SnapEnabled bool       `json:"snap_enabled"`
}

// Validate enforces: mode=none implies both cursors are nil.
func (c *CursorState) Validate() error {
	if c.Mode == CursorNone && (c.C1 != nil || c.C2 != nil) {
		return ErrInvalidRange
	}

	return nil
}

// GraphLayout is one graph slot within a tab: its assigned signals and
// optional filter/limits/deviation configuration.
type GraphLayout struct {
	GraphID   string                 `json:"graph_id"`
	Signals   []string               `json:"signals"`
	Filter    *FilterSpec            `json:"filter,omitempty"`
	Limits    map[string]LimitConfig `json:"limits,omitempty"`
	Deviation *DeviationConfig       `json:"deviation,omitempty"`
}

// TabLayout is one tab: an ordered set of graphs (1..10).
type TabLayout struct {
	TabID  string        `json:"tab_id"`
	Graphs []GraphLayout `json:"graphs"`
}

// ProjectArchive is the top-level persisted project descriptor
// (metadata.json content plus the layout it references).
type ProjectArchive struct {
	Version     string
	CreatedAt   time.Time
	AppVersion  string
	RowCount    int
	ColumnCount int
	Columns     []string
	Layout      []TabLayout
	Custom      map[string]any
}
