package observability

import "log/slog"

// AppMode identifies the runtime surface the process is serving, so logs and
// span attributes can be filtered or routed differently per surface.
type AppMode string

const (
	// ModeCLI marks a process driven by the traceframe command-line tool.
	ModeCLI AppMode = "cli"

	// ModeWorker marks a background orchestrator worker process.
	ModeWorker AppMode = "worker"
)

// defaultShutdownTimeoutSec bounds how long Shutdown waits for pending
// telemetry to flush before giving up.
const defaultShutdownTimeoutSec = 5

// defaultServiceName is the resource service.name reported when the caller
// does not override it.
const defaultServiceName = "traceframe"

// Config controls observability bootstrap: resource attributes, exporter
// wiring, sampling, and logging. Init always installs a noop tracer
// provider and does not read the trace fields (OTLPEndpoint, OTLPInsecure,
// OTLPHeaders, SampleRatio, DebugTrace, TraceVerbose).
type Config struct {
	// ServiceName is the OTel resource service.name.
	ServiceName string

	// ServiceVersion is the OTel resource service.version, typically the
	// build version reported by pkg/version.
	ServiceVersion string

	// Environment is the OTel resource deployment.environment (e.g. "dev", "prod").
	Environment string

	// Mode identifies the runtime surface (CLI, worker) for logging and attribute scoping.
	Mode AppMode

	// LogLevel is the minimum slog level emitted.
	LogLevel slog.Level

	// LogJSON selects JSON-formatted logs over human-readable text.
	LogJSON bool

	// OTLPEndpoint is the gRPC endpoint for trace export. Empty disables
	// trace export entirely (noop tracer provider).
	OTLPEndpoint string

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool

	// OTLPHeaders are additional headers sent with OTLP export requests.
	OTLPHeaders map[string]string

	// PrometheusEnabled wires an OTel Prometheus exporter into the meter
	// provider, registered against a new Prometheus registry that Init
	// returns as Providers.Registerer.
	PrometheusEnabled bool

	// SampleRatio is the trace sampling ratio used when no OTEL_TRACES_SAMPLER
	// env var is set. Ignored when DebugTrace is true.
	SampleRatio float64

	// DebugTrace forces AlwaysSample and disables attribute filtering on spans.
	DebugTrace bool

	// TraceVerbose disables the attribute allow-list filter even when export
	// is enabled. Intended for local debugging only.
	TraceVerbose bool

	// ShutdownTimeoutSec bounds provider shutdown. Falls back to
	// defaultShutdownTimeoutSec when zero.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config suitable for a CLI process with no exporter
// wired: noop tracing, stderr text logging at info level.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
