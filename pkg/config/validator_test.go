package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Queue:     DefaultQueueConfig(),
		Flow:      DefaultFlowConfig(),
		Import:    DefaultImportConfig(),
		Cost:      DefaultCostConfig(),
		Circuit:   DefaultCircuitConfig(),
		Retention: DefaultRetentionConfig(),
		Defaults:  &Defaults{},
	}
}

func TestValidateAllAcceptsDefaults(t *testing.T) {
	v := NewValidator(validConfig())
	require.NoError(t, v.ValidateAll())
}

func TestValidateFlow(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FlowConfig)
		wantErr string
	}{
		{"max concurrent jobs zero", func(f *FlowConfig) { f.MaxConcurrentJobs = 0 }, "max_concurrent_jobs"},
		{"max concurrent pages zero", func(f *FlowConfig) { f.MaxConcurrentPages = 0 }, "max_concurrent_pages"},
		{"page timeout zero", func(f *FlowConfig) { f.PageTimeout = 0 }, "page_timeout"},
		{"job timeout zero", func(f *FlowConfig) { f.JobTimeout = 0 }, "job_timeout"},
		{"negative polite delay", func(f *FlowConfig) { f.PoliteDelay = -time.Second }, "polite_delay"},
		{"max pages per job zero", func(f *FlowConfig) { f.MaxPagesPerJob = 0 }, "max_pages_per_job"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg.Flow)
			err := NewValidator(cfg).validateFlow()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateImport(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ImportConfig)
		wantErr string
	}{
		{"batch size zero", func(i *ImportConfig) { i.BatchSize = 0 }, "batch_size"},
		{"worker count zero", func(i *ImportConfig) { i.WorkerCount = 0 }, "worker_count"},
		{"row timeout zero", func(i *ImportConfig) { i.RowTimeout = 0 }, "row_timeout"},
		{"stale threshold zero", func(i *ImportConfig) { i.StaleThreshold = 0 }, "stale_threshold"},
		{
			"recovery interval exceeds stale threshold",
			func(i *ImportConfig) { i.RecoveryScanInterval = i.StaleThreshold + time.Minute },
			"recovery_scan_interval",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg.Import)
			err := NewValidator(cfg).validateImport()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCost(t *testing.T) {
	cfg := validConfig()
	cfg.Cost.MaxCostPerJob = -1
	err := NewValidator(cfg).validateCost()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_cost_per_job_cents")
}

func TestValidateCircuit(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CircuitConfig)
		wantErr string
	}{
		{"failure threshold zero", func(c *CircuitConfig) { c.FailureThreshold = 0 }, "failure_threshold"},
		{"open duration zero", func(c *CircuitConfig) { c.OpenDuration = 0 }, "open_duration"},
		{"half open threshold zero", func(c *CircuitConfig) { c.HalfOpenSuccessThreshold = 0 }, "half_open_success_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg.Circuit)
			err := NewValidator(cfg).validateCircuit()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRetention(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.JobRetentionDays = 0
	err := NewValidator(cfg).validateRetention()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job_retention_days")
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	badDepth := -1
	cfg.Defaults.MaxDepth = &badDepth
	err := NewValidator(cfg).validateDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth")

	cfg = validConfig()
	badConfidence := 150
	cfg.Defaults.MinConfidence = &badConfidence
	err = NewValidator(cfg).validateDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_confidence")
}
