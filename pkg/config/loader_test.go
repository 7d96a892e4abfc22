package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultQueueConfig().WorkerCount, cfg.Queue.WorkerCount)
	assert.Equal(t, DefaultFlowConfig().MaxConcurrentJobs, cfg.Flow.MaxConcurrentJobs)
	assert.Equal(t, DefaultImportConfig().BatchSize, cfg.Import.BatchSize)
	assert.Equal(t, DefaultCostConfig().MaxCostPerJob, cfg.Cost.MaxCostPerJob)
	assert.Equal(t, DefaultCircuitConfig().FailureThreshold, cfg.Circuit.FailureThreshold)
	assert.Equal(t, DefaultRetentionConfig().JobRetentionDays, cfg.Retention.JobRetentionDays)
}

func TestInitializeWithOverrides(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
flow:
  max_concurrent_jobs: 20
  polite_delay: 2s
import:
  batch_size: 250
  worker_count: 8
cost:
  max_cost_per_job_cents: 1000
retention:
  job_retention_days: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contactminer.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Flow.MaxConcurrentJobs)
	assert.Equal(t, 2*time.Second, cfg.Flow.PoliteDelay)
	assert.Equal(t, 250, cfg.Import.BatchSize)
	assert.Equal(t, 8, cfg.Import.WorkerCount)
	assert.Equal(t, int64(1000), cfg.Cost.MaxCostPerJob)
	assert.Equal(t, 30, cfg.Retention.JobRetentionDays)

	// Unset fields still get built-in defaults via mergo.
	assert.Equal(t, DefaultFlowConfig().MaxConcurrentPages, cfg.Flow.MaxConcurrentPages)
	assert.Equal(t, DefaultImportConfig().RowTimeout, cfg.Import.RowTimeout)
}

func TestInitializeRejectsInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
queue:
  worker_count: 51
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contactminer.yaml"), []byte(yamlContent), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker_count")
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contactminer.yaml"), []byte("not: [valid yaml"), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestRedisPasswordComesFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REDIS_PASSWORD", "s3cret")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestExpandEnvInYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CM_TEST_ADDR", "redis.internal:6380")
	yamlContent := "redis:\n  addr: ${CM_TEST_ADDR}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contactminer.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
}
