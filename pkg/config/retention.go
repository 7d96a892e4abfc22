package config

import "time"

// RetentionConfig controls data retention and cleanup behavior for completed
// jobs and their result rows.
type RetentionConfig struct {
	// JobRetentionDays is how many days to keep completed jobs (and their
	// result rows, cascade-deleted) before purging them.
	JobRetentionDays int `yaml:"job_retention_days"`

	// EventTTL is the maximum age of published EventBus events retained in
	// Redis for replay/debugging before expiry.
	EventTTL time.Duration `yaml:"event_ttl"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		JobRetentionDays: 90,
		EventTTL:         1 * time.Hour,
		CleanupInterval:  12 * time.Hour,
	}
}
