// Package config provides configuration loading and validation for traceframe.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort          = errors.New("invalid server port")
	ErrInvalidWorkerCount   = errors.New("orchestrator worker count must be non-negative")
	ErrInvalidDebounce      = errors.New("filter debounce window must be positive")
	ErrInvalidCacheBudget   = errors.New("column store cache budget must be positive")
	ErrInvalidCheckpointAge = errors.New("checkpoint max age must be positive")
)

// Default configuration values.
const (
	defaultPort            = 8090
	defaultHost            = "127.0.0.1"
	defaultDebounceMillis  = 350
	defaultMaxConcurrent   = 0 // 0 means runtime.NumCPU()-1.
	defaultSnapThresholdPx = 8
	maxPort                = 65535
)

// Config holds all configuration for a traceframe session process.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	ColumnStore  ColumnStoreConfig  `mapstructure:"column_store"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Archive      ArchiveConfig      `mapstructure:"archive"`
	Cursor       CursorConfig       `mapstructure:"cursor"`
}

// ServerConfig holds settings for an optional HTTP surface. They are loaded
// and validated only: no package in this module starts an HTTP server, and
// traceframe's core session APIs are in-process.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Port         int           `mapstructure:"port"`
	Enabled      bool          `mapstructure:"enabled"`
}

// ColumnStoreConfig controls the in-memory column store's materialized
// column cache.
type ColumnStoreConfig struct {
	CacheBudgetBytes int64 `mapstructure:"cache_budget_bytes"`
	ForwardFillNaN   bool  `mapstructure:"forward_fill_nan"`
}

// OrchestratorConfig controls the task orchestrator's debounce window and
// worker pool sizing.
type OrchestratorConfig struct {
	DebounceWindow    time.Duration `mapstructure:"debounce_window"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	HibernateMode     string        `mapstructure:"hibernate_mode"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ArchiveConfig controls project archive checkpoint retention.
type ArchiveConfig struct {
	Directory       string        `mapstructure:"directory"`
	MaxAge          time.Duration `mapstructure:"max_age"`
	MaxSizeBytes    int64         `mapstructure:"max_size_bytes"`
	CompressionAlgo string        `mapstructure:"compression_algo"`
}

// CursorConfig controls dual-cursor snapping behavior.
type CursorConfig struct {
	SnapThresholdPx int `mapstructure:"snap_threshold_px"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("config")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/traceframe")
	}

	viperCfg.SetEnvPrefix("TRACEFRAME")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&cfg)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.enabled", false)
	viperCfg.SetDefault("server.port", defaultPort)
	viperCfg.SetDefault("server.host", defaultHost)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "30s")
	viperCfg.SetDefault("server.idle_timeout", "60s")

	viperCfg.SetDefault("column_store.cache_budget_bytes", DefaultColumnStoreCacheBudgetBytes)
	viperCfg.SetDefault("column_store.forward_fill_nan", DefaultForwardFillNaN)

	viperCfg.SetDefault("orchestrator.debounce_window", "350ms")
	viperCfg.SetDefault("orchestrator.max_concurrent_jobs", defaultMaxConcurrent)
	viperCfg.SetDefault("orchestrator.hibernate_mode", "auto")

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "json")
	viperCfg.SetDefault("logging.output", "stdout")

	viperCfg.SetDefault("archive.directory", DefaultArchiveDirectory)
	viperCfg.SetDefault("archive.max_age", "720h")
	viperCfg.SetDefault("archive.max_size_bytes", DefaultArchiveMaxSizeBytes)
	viperCfg.SetDefault("archive.compression_algo", "zstd")

	viperCfg.SetDefault("cursor.snap_threshold_px", defaultSnapThresholdPx)
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	if cfg.Server.Enabled && (cfg.Server.Port <= 0 || cfg.Server.Port > maxPort) {
		return fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Server.Port)
	}

	if cfg.Orchestrator.MaxConcurrentJobs < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkerCount, cfg.Orchestrator.MaxConcurrentJobs)
	}

	if cfg.Orchestrator.DebounceWindow <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDebounce, cfg.Orchestrator.DebounceWindow)
	}

	if cfg.ColumnStore.CacheBudgetBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheBudget, cfg.ColumnStore.CacheBudgetBytes)
	}

	if cfg.Archive.MaxAge <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCheckpointAge, cfg.Archive.MaxAge)
	}

	return nil
}
