package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ContactMinerYAMLConfig represents the complete contactminer.yaml file structure.
type ContactMinerYAMLConfig struct {
	Defaults  *Defaults      `yaml:"defaults"`
	Queue     *QueueConfig   `yaml:"queue"`
	Flow      *FlowConfig    `yaml:"flow"`
	Import    *ImportConfig  `yaml:"import"`
	Cost      *CostConfig    `yaml:"cost"`
	Circuit   *CircuitConfig `yaml:"circuit"`
	Redis     *RedisConfig   `yaml:"redis"`
	Retention *RetentionConfig `yaml:"retention"`
	Canonical *CanonicalConfig `yaml:"canonical"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load contactminer.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in defaults with user-provided overrides
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"max_concurrent_jobs", stats.MaxConcurrentJobs,
		"import_worker_count", stats.ImportWorkerCount)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userCfg, err := loader.loadContactMinerYAML()
	if err != nil {
		return nil, NewLoadError("contactminer.yaml", err)
	}

	defaults := userCfg.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}

	queueCfg := DefaultQueueConfig()
	if userCfg.Queue != nil {
		if err := mergo.Merge(queueCfg, userCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	flowCfg := DefaultFlowConfig()
	if userCfg.Flow != nil {
		if err := mergo.Merge(flowCfg, userCfg.Flow, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge flow config: %w", err)
		}
	}

	importCfg := DefaultImportConfig()
	if userCfg.Import != nil {
		if err := mergo.Merge(importCfg, userCfg.Import, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge import config: %w", err)
		}
	}

	costCfg := DefaultCostConfig()
	if userCfg.Cost != nil {
		if err := mergo.Merge(costCfg, userCfg.Cost, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge cost config: %w", err)
		}
	}

	circuitCfg := DefaultCircuitConfig()
	if userCfg.Circuit != nil {
		if err := mergo.Merge(circuitCfg, userCfg.Circuit, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge circuit config: %w", err)
		}
	}

	redisCfg := DefaultRedisConfig()
	if userCfg.Redis != nil {
		if err := mergo.Merge(redisCfg, userCfg.Redis, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge redis config: %w", err)
		}
	}
	// Password is never read from YAML; always sourced from the environment.
	redisCfg.Password = os.Getenv("REDIS_PASSWORD")

	retentionCfg := DefaultRetentionConfig()
	if userCfg.Retention != nil {
		if err := mergo.Merge(retentionCfg, userCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	canonicalCfg := DefaultCanonicalConfig()
	if userCfg.Canonical != nil {
		if err := mergo.Merge(canonicalCfg, userCfg.Canonical, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge canonical config: %w", err)
		}
	}
	// CANONICAL_AGGREGATION_DISABLED / CANONICAL_AGGREGATION_MODE override the
	// file, matching the env-var surface described in §6.
	if os.Getenv("CANONICAL_AGGREGATION_DISABLED") == "true" {
		canonicalCfg.Enabled = false
	}
	if mode := os.Getenv("CANONICAL_AGGREGATION_MODE"); mode != "" {
		canonicalCfg.Mode = CanonicalMode(mode)
	}

	return &Config{
		configDir: configDir,
		Defaults:  defaults,
		Queue:     queueCfg,
		Flow:      flowCfg,
		Import:    importCfg,
		Cost:      costCfg,
		Circuit:   circuitCfg,
		Redis:     redisCfg,
		Retention: retentionCfg,
		Canonical: canonicalCfg,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using shell-style ${VAR}/$VAR syntax.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadContactMinerYAML() (*ContactMinerYAMLConfig, error) {
	var cfg ContactMinerYAMLConfig

	path := filepath.Join(l.configDir, "contactminer.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Absence is fine — every subsystem config has built-in defaults.
		return &cfg, nil
	}

	if err := l.loadYAML("contactminer.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
