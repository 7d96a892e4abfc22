package config

import "time"

// CircuitConfig controls the per-host circuit breaker that shields extractor
// adapters from hammering a domain that is blocking or erroring repeatedly.
type CircuitConfig struct {
	// FailureThreshold is the number of consecutive failures for a host
	// before the breaker trips to open.
	FailureThreshold int `yaml:"failure_threshold"`

	// OpenDuration is how long the breaker stays open before allowing a
	// single half-open probe request through.
	OpenDuration time.Duration `yaml:"open_duration"`

	// HalfOpenSuccessThreshold is the number of consecutive probe successes
	// required to close the breaker again.
	HalfOpenSuccessThreshold int `yaml:"half_open_success_threshold"`
}

// DefaultCircuitConfig returns the built-in circuit breaker defaults.
func DefaultCircuitConfig() *CircuitConfig {
	return &CircuitConfig{
		FailureThreshold:         5,
		OpenDuration:             30 * time.Minute,
		HalfOpenSuccessThreshold: 2,
	}
}
