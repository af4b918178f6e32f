package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Source indicates where a configuration value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceUser    Source = "user"
	SourceProject Source = "project"
	SourceFile    Source = "file"
)

// TrackedConfig wraps a Config with the file each value was read from.
type TrackedConfig struct {
	Config *Config

	// Sources maps yaml keys to their source. Keys not present were not set
	// by any file.
	Sources map[string]Source

	// Files lists the configuration files that were read, in load order.
	Files []string
}

// GetSource returns the source for a yaml key, SourceDefault if no file set it.
func (tc *TrackedConfig) GetSource(key string) Source {
	if s, ok := tc.Sources[key]; ok {
		return s
	}
	return SourceDefault
}

// Load reads configuration files relative to the working directory.
// See LoadFrom.
func Load(explicit string) (*TrackedConfig, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return LoadFrom(wd, explicit)
}

// LoadFrom loads configuration with source tracking.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. User config (~/.gophish-backup/config.yaml) - optional
//  3. Project config (<dir>/.gophish-backup.yaml) - optional
//  4. explicit, when non-empty - must exist
//
// Environment variables and flags are layered on top by the CLI.
func LoadFrom(dir, explicit string) (*TrackedConfig, error) {
	tc := &TrackedConfig{
		Config:  Default(),
		Sources: make(map[string]Source),
	}

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, DirName, FileName)
		if _, err := os.Stat(userPath); err == nil {
			if err := mergeFromFile(tc, userPath, SourceUser); err != nil {
				slog.Warn("failed to load user config", "path", userPath, "error", err)
			}
		}
	}

	projectPath := filepath.Join(dir, ProjectFileName)
	if _, err := os.Stat(projectPath); err == nil {
		if err := mergeFromFile(tc, projectPath, SourceProject); err != nil {
			return nil, err // Project config errors are fatal
		}
	}

	if explicit != "" {
		if err := mergeFromFile(tc, explicit, SourceFile); err != nil {
			return nil, err
		}
	}

	return tc, nil
}

// mergeFromFile merges configuration from a file into tc.
func mergeFromFile(tc *TrackedConfig, path string, source Source) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	// Parse YAML into a map to track which fields are set
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	mergeConfig(tc, &fileCfg, raw, source)
	tc.Files = append(tc.Files, path)
	return nil
}

// mergeConfig copies every key present in raw from fileCfg into tc.Config.
func mergeConfig(tc *TrackedConfig, fileCfg *Config, raw map[string]interface{}, source Source) {
	cfg := tc.Config

	if _, ok := raw["instance"]; ok {
		cfg.Instance = fileCfg.Instance
		tc.Sources["instance"] = source
	}
	if _, ok := raw["api_key"]; ok {
		cfg.APIKey = fileCfg.APIKey
		tc.Sources["api_key"] = source
	}
	if _, ok := raw["filename"]; ok {
		cfg.Filename = fileCfg.Filename
		tc.Sources["filename"] = source
	}
	if _, ok := raw["insecure"]; ok {
		cfg.Insecure = fileCfg.Insecure
		tc.Sources["insecure"] = source
	}
	if _, ok := raw["timeout"]; ok {
		cfg.Timeout = fileCfg.Timeout
		tc.Sources["timeout"] = source
	}
	if _, ok := raw["rate_limit"]; ok {
		cfg.RateLimit = fileCfg.RateLimit
		tc.Sources["rate_limit"] = source
	}
}
