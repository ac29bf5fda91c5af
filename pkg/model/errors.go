// Package model holds the shared data types and sentinel errors that every
// analysis-core package builds on: signals, filters, segments, layout, and
// the error kinds the session surfaces to its caller.
package model

import "errors"

// Sentinel error kinds. Callers match on these with errors.Is; richer
// context travels in the wrapping error produced alongside them.
var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrUnknownSignal  = errors.New("unknown signal")
	ErrInvalidRange   = errors.New("invalid filter range")
	ErrEmptyResult    = errors.New("operation produced no samples")
	ErrTaskCancelled  = errors.New("task cancelled")
	ErrArchiveInvalid = errors.New("project archive invalid")
	ErrIOFailure      = errors.New("archive io failure")
)

// FilterModeConflict reports that a concatenated filter is already active on
// another tab, blocking the requested operation.
type FilterModeConflict struct {
	ActiveTab string
}

func (e *FilterModeConflict) Error() string {
	return "filter mode conflict: tab " + e.ActiveTab + " already holds a concatenated filter"
}

// TaskFailed wraps an unexpected error raised inside an orchestrator worker.
type TaskFailed struct {
	Identity Identity
	Detail   string
}

func (e *TaskFailed) Error() string {
	return "task failed for " + e.Identity.String() + ": " + e.Detail
}

// ValidationWarning reports a non-fatal data quality finding for a column.
type ValidationWarning struct {
	Column string
	Issues []string
}

func (e *ValidationWarning) Error() string {
	return "validation warning on column " + e.Column
}
