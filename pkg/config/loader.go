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

// Initialize loads, validates, and returns ready-to-use configuration. It is
// split into load/validate steps so each can be tested independently.
//
// Steps:
//  1. Load sous.yaml from configDir (missing file is not an error; builtin
//     defaults apply).
//  2. Expand environment variables.
//  3. Merge user config onto builtin defaults (user wins).
//  4. Validate the merged configuration.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"llm_model", cfg.LLM.Model,
		"retrieval_collection", cfg.Retrieval.CollectionName,
		"web_search_provider", cfg.WebSearch.Provider)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	cfg := Builtin()

	path := filepath.Join(configDir, "sous.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("no sous.yaml found, using built-in defaults only", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var userCfg Config
	if err := yaml.Unmarshal(data, &userCfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	// User-provided values win over builtin defaults.
	if err := mergo.Merge(cfg, userCfg, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("failed to merge configuration: %w", err))
	}

	return cfg, nil
}
