package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateFlow(); err != nil {
		return fmt.Errorf("flow validation failed: %w", err)
	}
	if err := v.validateImport(); err != nil {
		return fmt.Errorf("import validation failed: %w", err)
	}
	if err := v.validateCost(); err != nil {
		return fmt.Errorf("cost validation failed: %w", err)
	}
	if err := v.validateCircuit(); err != nil {
		return fmt.Errorf("circuit validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1, got %d", q.MaxConcurrentJobs)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive, got %v", q.JobTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", q.OrphanThreshold)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", q.HeartbeatInterval)
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return fmt.Errorf("heartbeat_interval must be less than orphan_threshold to prevent false orphan detection, got heartbeat=%v threshold=%v", q.HeartbeatInterval, q.OrphanThreshold)
	}

	return nil
}

func (v *Validator) validateFlow() error {
	f := v.cfg.Flow
	if f == nil {
		return fmt.Errorf("flow configuration is nil")
	}
	if f.MaxConcurrentJobs < 1 {
		return NewValidationError("flow", "", "max_concurrent_jobs", fmt.Errorf("must be at least 1"))
	}
	if f.MaxConcurrentPages < 1 {
		return NewValidationError("flow", "", "max_concurrent_pages", fmt.Errorf("must be at least 1"))
	}
	if f.PageTimeout <= 0 {
		return NewValidationError("flow", "", "page_timeout", fmt.Errorf("must be positive"))
	}
	if f.JobTimeout <= 0 {
		return NewValidationError("flow", "", "job_timeout", fmt.Errorf("must be positive"))
	}
	if f.PoliteDelay < 0 {
		return NewValidationError("flow", "", "polite_delay", fmt.Errorf("must be non-negative"))
	}
	if f.MaxPagesPerJob < 1 {
		return NewValidationError("flow", "", "max_pages_per_job", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateImport() error {
	i := v.cfg.Import
	if i == nil {
		return fmt.Errorf("import configuration is nil")
	}
	if i.BatchSize < 1 {
		return NewValidationError("import", "", "batch_size", fmt.Errorf("must be at least 1"))
	}
	if i.WorkerCount < 1 {
		return NewValidationError("import", "", "worker_count", fmt.Errorf("must be at least 1"))
	}
	if i.RowTimeout <= 0 {
		return NewValidationError("import", "", "row_timeout", fmt.Errorf("must be positive"))
	}
	if i.StaleThreshold <= 0 {
		return NewValidationError("import", "", "stale_threshold", fmt.Errorf("must be positive"))
	}
	if i.RecoveryScanInterval <= 0 {
		return NewValidationError("import", "", "recovery_scan_interval", fmt.Errorf("must be positive"))
	}
	if i.RecoveryScanInterval >= i.StaleThreshold {
		return NewValidationError("import", "", "recovery_scan_interval", fmt.Errorf("must be less than stale_threshold"))
	}
	return nil
}

func (v *Validator) validateCost() error {
	c := v.cfg.Cost
	if c == nil {
		return fmt.Errorf("cost configuration is nil")
	}
	if c.MaxCostPerJob < 0 {
		return NewValidationError("cost", "", "max_cost_per_job_cents", fmt.Errorf("must be non-negative"))
	}
	if c.MaxCostPerTenantDaily < 0 {
		return NewValidationError("cost", "", "max_cost_per_tenant_daily_cents", fmt.Errorf("must be non-negative"))
	}
	if c.AIExtractionCostPerCall < 0 {
		return NewValidationError("cost", "", "ai_extraction_cost_per_call_cents", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func (v *Validator) validateCircuit() error {
	c := v.cfg.Circuit
	if c == nil {
		return fmt.Errorf("circuit configuration is nil")
	}
	if c.FailureThreshold < 1 {
		return NewValidationError("circuit", "", "failure_threshold", fmt.Errorf("must be at least 1"))
	}
	if c.OpenDuration <= 0 {
		return NewValidationError("circuit", "", "open_duration", fmt.Errorf("must be positive"))
	}
	if c.HalfOpenSuccessThreshold < 1 {
		return NewValidationError("circuit", "", "half_open_success_threshold", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	if r.JobRetentionDays < 1 {
		return NewValidationError("retention", "", "job_retention_days", fmt.Errorf("must be at least 1"))
	}
	if r.EventTTL <= 0 {
		return NewValidationError("retention", "", "event_ttl", fmt.Errorf("must be positive"))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanup_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return nil
	}
	if d.MaxDepth != nil && *d.MaxDepth < 0 {
		return NewValidationError("defaults", "", "max_depth", fmt.Errorf("must be non-negative"))
	}
	if d.MinConfidence != nil && (*d.MinConfidence < 0 || *d.MinConfidence > 100) {
		return NewValidationError("defaults", "", "min_confidence", fmt.Errorf("must be between 0 and 100"))
	}
	return nil
}
