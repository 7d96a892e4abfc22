package config

// CanonicalMode selects how canonical aggregation (§4.10) applies its
// writes.
type CanonicalMode string

const (
	// CanonicalModeShadow runs the upsert logic read-only: decisions are
	// logged but persons/affiliations are never written.
	CanonicalModeShadow CanonicalMode = "shadow"
	// CanonicalModePersist writes persons/affiliations for real.
	CanonicalModePersist CanonicalMode = "persist"
)

// CanonicalConfig controls the canonical persons/affiliations aggregation
// triggered after ResultAggregator V2 persistence and by the import
// pipeline's per-row upsert (§4.10).
type CanonicalConfig struct {
	// Enabled is the top-level kill switch; when false, canonical
	// aggregation is skipped entirely regardless of Mode.
	Enabled bool `yaml:"enabled"`

	// Mode selects shadow vs. persist.
	Mode CanonicalMode `yaml:"mode"`

	// VerboseShadowLogging emits one log line per would-be write while in
	// shadow mode, for comparing against the legacy prospect pipeline.
	VerboseShadowLogging bool `yaml:"verbose_shadow_logging"`
}

// DefaultCanonicalConfig returns the built-in canonical-aggregation
// defaults: enabled, persisting.
func DefaultCanonicalConfig() *CanonicalConfig {
	return &CanonicalConfig{
		Enabled: true,
		Mode:    CanonicalModePersist,
	}
}

// Shadow reports whether writes should be logged instead of applied.
func (c *CanonicalConfig) Shadow() bool {
	return c.Mode == CanonicalModeShadow
}
