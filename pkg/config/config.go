package config

// Config is the umbrella configuration object returned by Initialize() and
// used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults *Defaults

	// Subsystem configuration
	Queue     *QueueConfig
	Flow      *FlowConfig
	Import    *ImportConfig
	Cost      *CostConfig
	Circuit   *CircuitConfig
	Redis     *RedisConfig
	Retention *RetentionConfig
	Canonical *CanonicalConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, surfaced in
// startup logs.
type ConfigStats struct {
	MaxConcurrentJobs int
	ImportWorkerCount int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		MaxConcurrentJobs: c.Queue.MaxConcurrentJobs,
		ImportWorkerCount: c.Import.WorkerCount,
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}
