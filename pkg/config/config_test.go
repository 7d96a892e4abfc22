package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigConvenienceMethods(t *testing.T) {
	cfg := &Config{
		configDir: "/test/config",
		Queue:     DefaultQueueConfig(),
		Import:    DefaultImportConfig(),
	}

	t.Run("ConfigDir", func(t *testing.T) {
		assert.Equal(t, "/test/config", cfg.ConfigDir())
	})
}

func TestConfigStats(t *testing.T) {
	cfg := &Config{
		Queue:  &QueueConfig{MaxConcurrentJobs: 7},
		Import: &ImportConfig{WorkerCount: 3},
	}

	stats := cfg.Stats()
	assert.Equal(t, 7, stats.MaxConcurrentJobs)
	assert.Equal(t, 3, stats.ImportWorkerCount)
}
