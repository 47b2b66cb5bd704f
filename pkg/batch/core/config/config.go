package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
// It is used to control the verbosity of log output.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

const (
	// DefaultThrottleLimit is the maximum number of dispatched chunks that may
	// be awaiting replies before the dispatcher blocks.
	DefaultThrottleLimit = 6
	// DefaultDrainMaxAttempts is the number of bounded waits performed while
	// draining outstanding replies before giving up.
	DefaultDrainMaxAttempts = 40
	// DefaultPollIntervalMs is the reply poll interval in milliseconds used
	// during throttle and drain waits.
	DefaultPollIntervalMs = 100
)

// RemoteChunkConfig holds the dispatcher-side settings for remote chunk processing.
type RemoteChunkConfig struct {
	// ThrottleLimit is the maximum number of in-flight chunk requests.
	ThrottleLimit int `yaml:"throttle_limit"`
	// DrainMaxAttempts is the maximum number of poll attempts while waiting for
	// all outstanding replies at step boundaries.
	DrainMaxAttempts int `yaml:"drain_max_attempts"`
	// PollIntervalMs is the interval in milliseconds between reply polls.
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// RetryConfig holds configuration for the gateway send retry mechanism.
type RetryConfig struct {
	MaxAttempts         int      `yaml:"max_attempts"`         // MaxAttempts is the maximum number of retry attempts.
	InitialInterval     int      `yaml:"initial_interval"`     // InitialInterval is the initial backoff interval in milliseconds.
	RetryableExceptions []string `yaml:"retryable_exceptions"` // RetryableExceptions is a list of retryable exception names (string).
}

// WorkerConfig holds configuration for the worker side of remote chunking.
type WorkerConfig struct {
	// Concurrency is the number of goroutines consuming chunk requests.
	Concurrency int `yaml:"concurrency"`
}

// BatchConfig holds configuration specific to the batch processing engine.
type BatchConfig struct {
	// JobName is the default job name if not specified elsewhere.
	JobName string `yaml:"job_name"`
	// ChunkSize is the default chunk size for chunk-oriented steps.
	ChunkSize int `yaml:"chunk_size"`
	// RemoteChunk is the remote chunk dispatcher configuration.
	RemoteChunk RemoteChunkConfig `yaml:"remote_chunk"`
	// Retry is the gateway send retry configuration.
	Retry RetryConfig `yaml:"retry"`
	// Worker is the worker-side configuration.
	Worker WorkerConfig `yaml:"worker"`
	// StepProperties holds per-step overrides of the remote chunk settings,
	// keyed by step name. Values are bound by yaml tag name.
	StepProperties map[string]map[string]string `yaml:"step_properties"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig holds the connection settings for a single named database.
type DatabaseConfig struct {
	// Type is the database driver type ("sqlite", "postgres", "mysql").
	Type string `yaml:"type"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// JobRepositoryDBRef is the name of the database connection used by JobRepository (e.g., "metadata").
	JobRepositoryDBRef string `yaml:"job_repository_db_ref"`
}

// OffshoreConfig holds all configuration under the "offshore" top-level key.
type OffshoreConfig struct {
	// Batch contains batch processing specific configurations.
	Batch BatchConfig `yaml:"batch"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// Databases holds named database connection configurations.
	Databases map[string]DatabaseConfig `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Offshore contains the top-level configuration for the Offshore framework.
	Offshore OffshoreConfig `yaml:"offshore"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// GlobalConfig is a pointer to the configuration instance shared across the application.
// It is expected to be set via fx.Supply or fx.Provide.
var GlobalConfig *Config

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Offshore: OffshoreConfig{
			System: SystemConfig{
				Timezone: "UTC", // Default value set to UTC
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Batch: BatchConfig{
				JobName:   "", // Default Job name is empty. Expected to be set by the application.
				ChunkSize: 10, // Default chunk size.
				RemoteChunk: RemoteChunkConfig{
					ThrottleLimit:    DefaultThrottleLimit,
					DrainMaxAttempts: DefaultDrainMaxAttempts,
					PollIntervalMs:   DefaultPollIntervalMs,
				},
				Retry: RetryConfig{ // Default gateway retry configuration.
					MaxAttempts:     3,
					InitialInterval: 1000, // Default value (e.g., 1000ms).
					RetryableExceptions: []string{ // Default retryable exceptions.
						"context.DeadlineExceeded",
						"context.Canceled",
					},
				},
				Worker: WorkerConfig{
					Concurrency: 1,
				},
			},
			Infrastructure: InfrastructureConfig{ // Default values.
				JobRepositoryDBRef: "metadata",
			},
		},
	}

	// Initialize Databases as an empty map, to be populated by YAML or by mergeConfig.
	cfg.Offshore.Databases = map[string]DatabaseConfig{}
	return cfg
}
