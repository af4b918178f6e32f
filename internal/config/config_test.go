package config

import (
	"testing"
	"time"

	backuperrors "github.com/randalmurphal/gophish-backup/internal/errors"
)

func TestValidateInstance(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"https://x/", false},
		{"http://localhost:3333/", false},
		{"https://phish.example.com/admin/", false},
		{"ftp://x/", true},
		{"https://x", true},
		{"x/", true},
		{"", true},
		{"HTTPS://x/", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateInstance(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateInstance(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			be := backuperrors.AsBackupError(err)
			if be == nil || be.Code != backuperrors.CodeInstanceInvalid {
				t.Errorf("ValidateInstance(%q) = %v, want %s error", tt.raw, err, backuperrors.CodeInstanceInvalid)
			}
		})
	}
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "gophish_backup.zip"},
		{"nightly", "nightly.zip"},
		{"nightly.zip", "nightly.zip"},
		{"backups/2024-03-01", "backups/2024-03-01.zip"},
		{"archive.tar", "archive.tar.zip"},
	}

	for _, tt := range tests {
		if got := ArchiveName(tt.name); got != tt.want {
			t.Errorf("ArchiveName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Filename != DefaultFilename {
		t.Errorf("Filename = %q, want %q", cfg.Filename, DefaultFilename)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %g, want 0", cfg.RateLimit)
	}
	if cfg.ArchivePath() != "gophish_backup.zip" {
		t.Errorf("ArchivePath() = %q", cfg.ArchivePath())
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Instance = "https://phish.example.com/"
		cfg.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode backuperrors.Code
	}{
		{"valid", func(*Config) {}, ""},
		{"missing instance", func(c *Config) { c.Instance = "" }, backuperrors.CodeConfigMissing},
		{"bad instance", func(c *Config) { c.Instance = "https://x" }, backuperrors.CodeInstanceInvalid},
		{"missing api key", func(c *Config) { c.APIKey = "" }, backuperrors.CodeConfigMissing},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, backuperrors.CodeConfigInvalid},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, backuperrors.CodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			be := backuperrors.AsBackupError(err)
			if be == nil {
				t.Fatalf("Validate() = %v, want BackupError", err)
			}
			if be.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", be.Code, tt.wantCode)
			}
		})
	}
}

func TestConfig_ValidateMissingAPIKeyNamesEnvVar(t *testing.T) {
	cfg := Default()
	cfg.Instance = "https://x/"
	be := backuperrors.AsBackupError(cfg.Validate())
	if be == nil {
		t.Fatal("expected BackupError")
	}
	if be.Fix != "Pass --api-key or set GOPHISH_API_KEY" {
		t.Errorf("Fix = %q", be.Fix)
	}
}
