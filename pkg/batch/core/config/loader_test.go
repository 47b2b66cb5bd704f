package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
offshore:
  batch:
    job_name: demo-remote-job
    chunk_size: 25
    remote_chunk:
      throttle_limit: 12
      poll_interval_ms: 50
    worker:
      concurrency: 4
  system:
    logging:
      level: DEBUG
  database:
    metadata:
      type: sqlite
      dsn: "file::memory:?cache=shared"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", EmbeddedConfig(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultThrottleLimit, cfg.Offshore.Batch.RemoteChunk.ThrottleLimit)
	assert.Equal(t, DefaultDrainMaxAttempts, cfg.Offshore.Batch.RemoteChunk.DrainMaxAttempts)
	assert.Equal(t, DefaultPollIntervalMs, cfg.Offshore.Batch.RemoteChunk.PollIntervalMs)
	assert.Equal(t, 10, cfg.Offshore.Batch.ChunkSize)
	assert.Equal(t, "INFO", cfg.Offshore.System.Logging.Level)
	assert.Equal(t, "metadata", cfg.Offshore.Infrastructure.JobRepositoryDBRef)
}

func TestLoadConfigMergesYAML(t *testing.T) {
	cfg, err := LoadConfig("", EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "demo-remote-job", cfg.Offshore.Batch.JobName)
	assert.Equal(t, 25, cfg.Offshore.Batch.ChunkSize)
	assert.Equal(t, 12, cfg.Offshore.Batch.RemoteChunk.ThrottleLimit)
	assert.Equal(t, 50, cfg.Offshore.Batch.RemoteChunk.PollIntervalMs)
	// Unset values keep their defaults.
	assert.Equal(t, DefaultDrainMaxAttempts, cfg.Offshore.Batch.RemoteChunk.DrainMaxAttempts)
	assert.Equal(t, 4, cfg.Offshore.Batch.Worker.Concurrency)
	assert.Equal(t, "DEBUG", cfg.Offshore.System.Logging.Level)

	db, ok := cfg.Offshore.Databases["metadata"]
	require.True(t, ok)
	assert.Equal(t, "sqlite", db.Type)
	assert.Equal(t, "file::memory:?cache=shared", db.DSN)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("OFFSHORE_BATCH_REMOTE_CHUNK_THROTTLE_LIMIT", "3")
	t.Setenv("OFFSHORE_SYSTEM_LOGGING_LEVEL", "WARN")

	cfg, err := LoadConfig("", EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Offshore.Batch.RemoteChunk.ThrottleLimit)
	assert.Equal(t, "WARN", cfg.Offshore.System.Logging.Level)
}

func TestValidateExceptionClasses(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, validateExceptionClasses(cfg))

	cfg.Offshore.Batch.Retry.RetryableExceptions = []string{"no.such.Error"}
	assert.Error(t, validateExceptionClasses(cfg))
}

func TestEnvironmentExpander(t *testing.T) {
	t.Setenv("THROTTLE", "9")
	expander := NewOsEnvironmentExpander()

	out, err := expander.Expand([]byte("limit: ${THROTTLE}"))
	require.NoError(t, err)
	assert.Equal(t, "limit: 9", string(out))
}
