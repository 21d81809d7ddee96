package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultAgentConfigPaths lists config file locations checked in order when
// CONFIG_PATH is not set.
var DefaultAgentConfigPaths = []string{
	"./agent.yaml",
	"/etc/insiderwatch/agent.yaml",
}

// DefaultIngestConfigPaths lists config file locations for the ingest service.
var DefaultIngestConfigPaths = []string{
	"./ingestd.yaml",
	"/etc/insiderwatch/ingestd.yaml",
}

// DefaultTrainerConfigPaths lists config file locations for the trainer.
var DefaultTrainerConfigPaths = []string{
	"./trainer.yaml",
	"/etc/insiderwatch/trainer.yaml",
}

// envPrefix is the prefix stripped from environment variables before mapping
// them onto koanf dot-paths, e.g. INSIDERWATCH_SERVER_URL -> server_url.
const envPrefix = "INSIDERWATCH_"

// sliceEnvPaths holds the koanf paths that take comma-separated env values.
var sliceEnvPaths = map[string]bool{
	"sensitive_patterns": true,
	"monitored_paths":    true,
	"cors_origins":       true,
}

// LoadAgentConfig loads agent configuration: struct defaults, then an
// optional YAML file, then environment variables, in that precedence order.
func LoadAgentConfig() (AgentConfig, error) {
	cfg := DefaultAgentConfig()
	k := koanf.New(".")

	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("loading agent config defaults: %w", err)
	}
	if err := loadConfigFile(k, findConfigFile(DefaultAgentConfigPaths)); err != nil {
		return cfg, err
	}
	if err := loadEnv(k); err != nil {
		return cfg, err
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling agent config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid agent config: %w", err)
	}
	return cfg, nil
}

// LoadIngestConfig loads ingest service configuration using the same
// defaults -> file -> env layering.
func LoadIngestConfig() (IngestConfig, error) {
	cfg := DefaultIngestConfig()
	k := koanf.New(".")

	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("loading ingest config defaults: %w", err)
	}
	if err := loadConfigFile(k, findConfigFile(DefaultIngestConfigPaths)); err != nil {
		return cfg, err
	}
	if err := loadEnv(k); err != nil {
		return cfg, err
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling ingest config: %w", err)
	}
	return cfg, nil
}

// LoadTrainerConfig loads training scheduler configuration.
func LoadTrainerConfig() (TrainerConfig, error) {
	cfg := DefaultTrainerConfig()
	k := koanf.New(".")

	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("loading trainer config defaults: %w", err)
	}
	if err := loadConfigFile(k, findConfigFile(DefaultTrainerConfigPaths)); err != nil {
		return cfg, err
	}
	if err := loadEnv(k); err != nil {
		return cfg, err
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling trainer config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading config file %s: %w", path, err)
	}
	return nil
}

func loadEnv(k *koanf.Koanf) error {
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return fmt.Errorf("loading config from environment: %w", err)
	}
	return processSliceFields(k)
}

// findConfigFile returns CONFIG_PATH if set, else the first candidate path
// that exists on disk, else "".
func findConfigFile(candidates []string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps INSIDERWATCH_SERVER_URL -> server_url,
// INSIDERWATCH_THRESHOLD_ALERT_ML -> threshold_alert_ml, etc.
func envTransformFunc(key string) string {
	trimmed := strings.TrimPrefix(key, envPrefix)
	return strings.ToLower(trimmed)
}

// processSliceFields converts comma-separated string values loaded from the
// environment into proper slices for the known list-valued config paths.
func processSliceFields(k *koanf.Koanf) error {
	for path := range sliceEnvPaths {
		raw := k.String(path)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("normalizing %s into a slice: %w", path, err)
		}
	}
	return nil
}
