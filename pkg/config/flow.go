package config

import "time"

// FlowConfig controls FlowOrchestrator concurrency, pacing, and budget ceilings
// for the scout → route → extract → paginate → aggregate pipeline (Flow 1 and 2).
// MaxConcurrentJobs, MaxConcurrentPages, PageTimeout and
// MaxConcurrentFlow2Jobs are validated but not read by any component.
type FlowConfig struct {
	// MaxConcurrentJobs is the global cap on jobs actively running Flow 2
	// across all replicas, mirroring the worker pool's session cap.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// MaxConcurrentPages is the per-job cap on concurrently fetched pages.
	MaxConcurrentPages int `yaml:"max_concurrent_pages"`

	// PageTimeout bounds a single page fetch + extract cycle.
	PageTimeout time.Duration `yaml:"page_timeout"`

	// JobTimeout bounds an entire job from scout through aggregation
	// (§5: "Total job timeout defaults to 5 minutes but is configurable
	// per extractor").
	JobTimeout time.Duration `yaml:"job_timeout"`

	// PoliteDelay is the pause the pagination handler waits between
	// consecutive page fetches of a job (500ms when zero or negative).
	PoliteDelay time.Duration `yaml:"polite_delay"`

	// MaxPagesPerJob bounds total pages visited by the pagination handler
	// before a job is forced to conclude (budget exhaustion, §4.5/§4.7).
	MaxPagesPerJob int `yaml:"max_pages_per_job"`

	// Flow2Enabled is the top-level kill switch for the enrichment pass
	// (§4.4 Flow-2 decision table's first row: "Flow 2 disabled in config").
	Flow2Enabled bool `yaml:"flow2_enabled"`

	// Flow2EnrichmentThreshold is the enrichment-rate floor below which
	// Flow 2 always runs regardless of contact count (§4.4: "enrichment <
	// threshold (0.20)").
	Flow2EnrichmentThreshold float64 `yaml:"flow2_enrichment_threshold"`

	// Flow2OOMContactThreshold is the contact count above which Flow 2's
	// OOM-protection rules apply (§4.4: "contacts > 500").
	Flow2OOMContactThreshold int `yaml:"flow2_oom_contact_threshold"`

	// Flow2OOMEnrichmentThreshold is the enrichment rate at/above which a
	// large result set skips Flow 2 entirely (§4.4: "enrichment ≥ 50%").
	Flow2OOMEnrichmentThreshold float64 `yaml:"flow2_oom_enrichment_threshold"`

	// Flow2SmallResultThreshold is the contact-count ceiling under which
	// the presence of website_urls alone is enough to run Flow 2 (§4.4:
	// "website_urls present and contacts < 10").
	Flow2SmallResultThreshold int `yaml:"flow2_small_result_threshold"`

	// Flow2MaxWebsitesOOM and Flow2ConcurrencyOOM bound Flow 2 when it
	// runs under OOM protection (§4.4: "capped to 50 websites with
	// concurrency 1").
	Flow2MaxWebsitesOOM  int `yaml:"flow2_max_websites_oom"`
	Flow2ConcurrencyOOM  int `yaml:"flow2_concurrency_oom"`

	// Flow2MaxWebsites and Flow2Concurrency bound Flow 2 in the normal
	// (non-OOM) case (§5: "per-batch concurrency of 3 in normal operation").
	Flow2MaxWebsites int `yaml:"flow2_max_websites"`
	Flow2Concurrency int `yaml:"flow2_concurrency"`

	// MaxConcurrentFlow2Jobs bounds simultaneous Flow-2 jobs across the
	// listener (§5: "default 2 simultaneous Flow-2 jobs per listener").
	MaxConcurrentFlow2Jobs int `yaml:"max_concurrent_flow2_jobs"`
}

// DefaultFlowConfig returns the built-in flow defaults.
func DefaultFlowConfig() *FlowConfig {
	return &FlowConfig{
		MaxConcurrentJobs:           5,
		MaxConcurrentPages:          4,
		PageTimeout:                 30 * time.Second,
		JobTimeout:                  5 * time.Minute,
		PoliteDelay:                 500 * time.Millisecond,
		MaxPagesPerJob:              200,
		Flow2Enabled:                true,
		Flow2EnrichmentThreshold:    0.20,
		Flow2OOMContactThreshold:    500,
		Flow2OOMEnrichmentThreshold: 0.50,
		Flow2SmallResultThreshold:   10,
		Flow2MaxWebsitesOOM:         50,
		Flow2ConcurrencyOOM:         1,
		Flow2MaxWebsites:            200,
		Flow2Concurrency:            3,
		MaxConcurrentFlow2Jobs:      2,
	}
}
