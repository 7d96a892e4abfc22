package config

// CostConfig holds per-tenant and per-job spending ceilings. The loader
// fills and validates it, but cost.Tracker does not read it: the tracker
// enforces its own fixed per-URL, per-job and monthly per-tenant limits
// (cost.LimitPerURLHundredths and the constants beside it).
type CostConfig struct {
	// MaxCostPerJob is a per-job ceiling on accumulated cost, in USD cents.
	MaxCostPerJob int64 `yaml:"max_cost_per_job_cents"`

	// MaxCostPerTenantDaily is a daily ceiling across all of a tenant's jobs.
	MaxCostPerTenantDaily int64 `yaml:"max_cost_per_tenant_daily_cents"`

	// AIExtractionCostPerCall is the nominal cost charged per AI-assisted
	// extraction call (extractor type "ai"), used when a provider doesn't
	// report exact token usage.
	AIExtractionCostPerCall int64 `yaml:"ai_extraction_cost_per_call_cents"`
}

// DefaultCostConfig returns the built-in cost ceiling defaults.
func DefaultCostConfig() *CostConfig {
	return &CostConfig{
		MaxCostPerJob:           500,
		MaxCostPerTenantDaily:   10000,
		AIExtractionCostPerCall: 2,
	}
}
