package config

import "os"

// AuthConfig holds the API boundary's auth material. Every field is
// env-only (never read from contactminer.yaml), matching RedisConfig's
// Password field — secrets don't belong in a checked-in config file.
type AuthConfig struct {
	// JWTSecret signs/verifies tenant-scoped bearer tokens.
	JWTSecret string
	// ManualMinerToken is the shared bearer token manual/offline miners use
	// in place of a tenant JWT when posting results (§6).
	ManualMinerToken string
	// WorkerID tags this process as an event source (§6 "worker identity").
	WorkerID string
}

// LoadAuthConfig reads JWT_SECRET, MANUAL_MINER_TOKEN, and WORKER_ID from
// the environment.
func LoadAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ManualMinerToken: os.Getenv("MANUAL_MINER_TOKEN"),
		WorkerID:         os.Getenv("WORKER_ID"),
	}
}
