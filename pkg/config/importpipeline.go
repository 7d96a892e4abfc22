package config

import "time"

// ImportConfig holds tunables for the result-row-to-canonical-contact import
// pipeline (§4.11). The loader fills and validates it, but pkg/importpipeline
// does not read it: the pipeline uses its own BatchSize and
// StalenessThreshold constants, and there is no recovery scanner.
type ImportConfig struct {
	// BatchSize is the number of result rows committed per transaction batch.
	BatchSize int `yaml:"batch_size"`

	// WorkerCount is the number of concurrent import workers per replica.
	WorkerCount int `yaml:"worker_count"`

	// RowTimeout bounds a single row's savepoint-guarded import.
	RowTimeout time.Duration `yaml:"row_timeout"`

	// StaleThreshold is how long an import can run without progress before
	// it's considered orphaned and eligible for crash recovery (§4.11 scenario 6).
	StaleThreshold time.Duration `yaml:"stale_threshold"`

	// RecoveryScanInterval is how often the orphan scanner checks for
	// stuck imports (jobs with import_status=processing past StaleThreshold).
	RecoveryScanInterval time.Duration `yaml:"recovery_scan_interval"`
}

// DefaultImportConfig returns the built-in import pipeline defaults.
func DefaultImportConfig() *ImportConfig {
	return &ImportConfig{
		BatchSize:            100,
		WorkerCount:          3,
		RowTimeout:           5 * time.Second,
		StaleThreshold:       10 * time.Minute,
		RecoveryScanInterval: 2 * time.Minute,
	}
}
