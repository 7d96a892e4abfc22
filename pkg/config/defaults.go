package config

// Defaults contains system-wide default configurations applied when a job
// doesn't override them in its per-job config (§4 JobConfig).
type Defaults struct {
	// MaxDepth is the default crawl depth for the pagination handler.
	MaxDepth *int `yaml:"max_depth,omitempty" validate:"omitempty,min=0"`

	// ExtractorPreference orders which extractor type SmartRouter prefers
	// when multiple adapters could plausibly handle a page.
	ExtractorPreference []string `yaml:"extractor_preference,omitempty"`

	// MinConfidence is the default confidence floor below which a result
	// row is held back from import (§4.7 Validator).
	MinConfidence *int `yaml:"min_confidence,omitempty" validate:"omitempty,min=0,max=100"`
}
