// Package config provides YAML-based project configuration for traceframe.
package config

// Column store defaults.
const (
	DefaultColumnStoreCacheBudgetBytes = 256 * 1024 * 1024
	DefaultForwardFillNaN              = true
)

// Filter engine defaults.
const (
	DefaultFilterDebounceMillis  = defaultDebounceMillis
	DefaultFilterMinDebounceMs   = 300
	DefaultFilterMaxDebounceMs   = 500
	DefaultFilterWorkerCountAuto = 0 // 0 selects runtime.NumCPU()-1.
)

// Deviation engine defaults.
const (
	DefaultDeviationEMAAlpha       = 0.2
	DefaultDeviationBandMultiplier = 2.0
	DefaultDeviationRollingWindow  = 50
	DefaultDeviationFluctuationPct = 0.05
)

// Statistics engine defaults.
const (
	DefaultStatsDutyCycleEpsilon = 1e-9
)

// Cursor controller defaults.
const (
	DefaultCursorSnapThresholdPx = defaultSnapThresholdPx
)

// Project archive defaults.
const (
	DefaultArchiveDirectory    = ""
	DefaultArchiveMaxSizeBytes = 20 * 1024 * 1024 * 1024
	DefaultArchiveSchemaVer    = 1
)

// Data validator defaults.
const (
	DefaultValidatorMinConfidence = 0.6
	DefaultValidatorSampleRows    = 500
)
