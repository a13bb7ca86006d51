package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, hash, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
	// sha256 of empty input
	if hash != "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected hash %s", hash)
	}
}

func TestLoadOverlaysOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
enhancement:
  enabled: false
  profile_timeout: 500ms
shadow:
  severe_at: 3
  complex_at: 5
`)
	cfg, hash, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enhancement.Enabled {
		t.Error("expected enhancement disabled")
	}
	if cfg.Enhancement.ProfileTimeout != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", cfg.Enhancement.ProfileTimeout)
	}
	if cfg.Enhancement.DefaultIntention != "personal learning and growth" {
		t.Errorf("expected default intention kept, got %q", cfg.Enhancement.DefaultIntention)
	}
	if cfg.Shadow.ComplexAt != 5 || cfg.Shadow.BaseReadiness != 0.5 {
		t.Errorf("unexpected shadow scoring %+v", cfg.Shadow)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("expected sha256 hash, got %s", hash)
	}
}

func TestLoadHashChangesWithContent(t *testing.T) {
	_, h1, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatal(err)
	}
	_, h2, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("expected different hashes for different files")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, _, err := Load(writeConfig(t, "enhancement: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("WISDOMGATE_ENHANCEMENT_ENABLED", "false")
	t.Setenv("WISDOMGATE_LOG_LEVEL", "debug")
	t.Setenv("WISDOMGATE_SERVER_PORT", "7000")
	t.Setenv("WISDOMGATE_SHADOW_BASE_READINESS", "0.4")

	path := writeConfig(t, "enhancement:\n  enabled: true\nlog:\n  level: warn\n")
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enhancement.Enabled {
		t.Error("expected env to disable enhancement")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Log.Level)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected 7000, got %d", cfg.Server.Port)
	}
	if cfg.Shadow.BaseReadiness != 0.4 {
		t.Errorf("expected 0.4, got %v", cfg.Shadow.BaseReadiness)
	}
}

func TestEnvBadValue(t *testing.T) {
	t.Setenv("WISDOMGATE_SERVER_PORT", "not-a-number")
	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected env parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Enhancement.ProfileTimeout = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"zero interval", func(c *Config) { c.Server.HealthInterval = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad thresholds", func(c *Config) { c.Shadow.SevereAt = 1 }},
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse([]byte(DefaultYAML(dir)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}
	if cfg.Data.Protection != dir+"/protection.yaml" {
		t.Errorf("unexpected protection path %q", cfg.Data.Protection)
	}
	if cfg.Profiles.DB != dir+"/profiles.db" || cfg.Audit.Log != dir+"/audit.jsonl" {
		t.Errorf("unexpected paths %+v %+v", cfg.Profiles, cfg.Audit)
	}
	if diff := cmp.Diff(Default().Shadow, cfg.Shadow); diff != "" {
		t.Errorf("generated scoring differs from defaults:\n%s", diff)
	}
}
