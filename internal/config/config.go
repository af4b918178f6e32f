// Package config provides configuration management for gophish-backup.
package config

import (
	"fmt"
	"strings"
	"time"

	backuperrors "github.com/randalmurphal/gophish-backup/internal/errors"
)

const (
	// DirName is the per-user configuration directory under $HOME.
	DirName = ".gophish-backup"
	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"
	// ProjectFileName is the configuration file read from the working directory.
	ProjectFileName = ".gophish-backup.yaml"

	// EnvPrefix prefixes every environment variable, e.g. GOPHISH_API_KEY.
	EnvPrefix = "GOPHISH"

	// DefaultFilename is the archive written and read when none is given.
	DefaultFilename = "gophish_backup.zip"
	// DefaultTimeout bounds each request to the instance.
	DefaultTimeout = 30 * time.Second
)

// Config holds every setting shared by the backup and restore commands.
type Config struct {
	// Instance is the admin server address, e.g. https://phish.example.com:3333/
	Instance string `yaml:"instance"`
	// APIKey authenticates every request. Prefer GOPHISH_API_KEY over storing
	// it in a file.
	APIKey string `yaml:"api_key"`
	// Filename is the archive path.
	Filename string `yaml:"filename"`
	// Insecure skips TLS certificate verification.
	Insecure bool `yaml:"insecure"`
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit caps requests per second; zero is unlimited.
	RateLimit float64 `yaml:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Filename: DefaultFilename,
		Timeout:  DefaultTimeout,
	}
}

// Validate checks that the configuration can be used to reach an instance.
func (c *Config) Validate() error {
	if c.Instance == "" {
		return backuperrors.ErrConfigMissing("instance", "instance", EnvPrefix+"_INSTANCE")
	}
	if err := ValidateInstance(c.Instance); err != nil {
		return err
	}
	if c.APIKey == "" {
		return backuperrors.ErrConfigMissing("api_key", "api-key", EnvPrefix+"_API_KEY")
	}
	if c.Timeout < 0 {
		return backuperrors.ErrConfigInvalid("timeout", fmt.Sprintf("must not be negative, got %s", c.Timeout))
	}
	if c.RateLimit < 0 {
		return backuperrors.ErrConfigInvalid("rate_limit", fmt.Sprintf("must not be negative, got %g", c.RateLimit))
	}
	return nil
}

// ArchivePath returns the archive file name with the .zip extension applied.
func (c *Config) ArchivePath() string {
	return ArchiveName(c.Filename)
}

// ValidateInstance checks an instance address before any network or file
// access. The address must name the scheme and end with a slash so endpoint
// paths can be appended to it.
func ValidateInstance(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return backuperrors.ErrInstanceInvalid(raw, "the address must start with http:// or https://")
	}
	if !strings.HasSuffix(raw, "/") {
		return backuperrors.ErrInstanceInvalid(raw, "the address must end with a trailing slash")
	}
	return nil
}

// ArchiveName returns the archive file name for name. An empty name selects
// DefaultFilename; a name without a .zip extension gets one.
func ArchiveName(name string) string {
	if name == "" {
		return DefaultFilename
	}
	if !strings.HasSuffix(name, ".zip") {
		return name + ".zip"
	}
	return name
}
