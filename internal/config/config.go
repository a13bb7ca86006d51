// Package config loads wisdomgate settings: built-in defaults, then the
// YAML file, then WISDOMGATE_* environment variables.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wisdomgate/internal/shadow"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WISDOMGATE_"

// Enhancement controls the orchestrator.
type Enhancement struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED"`
	ProfileTimeout   time.Duration `yaml:"profile_timeout" env:"PROFILE_TIMEOUT"`
	DefaultIntention string        `yaml:"default_intention" env:"DEFAULT_INTENTION"`
}

// Data points at overlay files for the built-in tables.
// Empty means ~/.wisdomgate/<name>.yaml; a missing file means the built-in table.
type Data struct {
	Protection string `yaml:"protection" env:"PROTECTION"`
	Archetypes string `yaml:"archetypes" env:"ARCHETYPES"`
	Shadow     string `yaml:"shadow" env:"SHADOW"`
}

// Profiles configures where cultural profiles come from.
// An empty DB disables the SQLite store.
type Profiles struct {
	DB   string `yaml:"db" env:"DB"`
	File string `yaml:"file" env:"FILE"`
}

// Audit configures the decision log. An empty Log disables it.
type Audit struct {
	Log string `yaml:"log" env:"LOG"`
}

// Log configures the zap logger.
type Log struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Server configures the gRPC health service.
type Server struct {
	Port           int           `yaml:"port" env:"PORT"`
	HealthInterval time.Duration `yaml:"health_interval" env:"HEALTH_INTERVAL"`
}

// Telemetry configures tracing. An empty Endpoint keeps tracing local.
type Telemetry struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Config is the full settings tree.
type Config struct {
	Enhancement Enhancement    `yaml:"enhancement" envPrefix:"ENHANCEMENT_"`
	Data        Data           `yaml:"data" envPrefix:"DATA_"`
	Profiles    Profiles       `yaml:"profiles" envPrefix:"PROFILES_"`
	Audit       Audit          `yaml:"audit" envPrefix:"AUDIT_"`
	Shadow      shadow.Scoring `yaml:"shadow" envPrefix:"SHADOW_"`
	Log         Log            `yaml:"log" envPrefix:"LOG_"`
	Server      Server         `yaml:"server" envPrefix:"SERVER_"`
	Telemetry   Telemetry      `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Enhancement: Enhancement{
			Enabled:          true,
			ProfileTimeout:   2 * time.Second,
			DefaultIntention: "personal learning and growth",
		},
		Shadow: shadow.DefaultScoring(),
		Log:    Log{Level: "info"},
		Server: Server{
			Port:           9470,
			HealthInterval: 10 * time.Second,
		},
		Telemetry: Telemetry{ServiceName: "wisdomgate"},
	}
}

// Dir returns ~/.wisdomgate, or "" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wisdomgate")
}

// DefaultPath returns ~/.wisdomgate/config.yaml.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load builds a Config and returns the SHA-256 of the YAML bytes it read.
// Empty path falls back to DefaultPath. A missing file keeps defaults and
// hashes empty input. Environment variables are applied last.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
		data = raw
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

// Parse overlays YAML onto defaults. Only keys present in data change.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays WISDOMGATE_* variables. Unset variables leave fields alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Enhancement.ProfileTimeout <= 0 {
		return fmt.Errorf("enhancement.profile_timeout must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.HealthInterval <= 0 {
		return fmt.Errorf("server.health_interval must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	if err := c.Shadow.Validate(); err != nil {
		return fmt.Errorf("shadow: %w", err)
	}
	return nil
}

// DefaultYAML returns a commented config file for `wisdomgate init`.
// dir is substituted for the data directory.
func DefaultYAML(dir string) string {
	return fmt.Sprintf(`# wisdomgate configuration
# Generated by: wisdomgate init
#
# Every key can be overridden with an environment variable, for example
#   WISDOMGATE_ENHANCEMENT_ENABLED=false
#   WISDOMGATE_LOG_LEVEL=debug

enhancement:
  # false turns the orchestrator into a pass-through.
  enabled: true
  # Profile lookups slower than this fall back to text detection.
  profile_timeout: 2s
  default_intention: "personal learning and growth"

# Overlay tables. Missing files fall back to the built-in tables.
data:
  protection: %[1]s/protection.yaml
  archetypes: %[1]s/archetypes.yaml
  shadow: %[1]s/shadow.yaml

profiles:
  db: %[1]s/profiles.db
  file: %[1]s/profiles.yaml

audit:
  log: %[1]s/audit.jsonl

# Shadow scoring. Severity thresholds are trigger counts.
shadow:
  base_readiness: 0.5
  help_seeking: 0.3
  curiosity: 0.2
  resistance: 0.2
  min_readiness: 0.1
  max_readiness: 1.0
  moderate_at: 2
  severe_at: 3
  complex_at: 4

log:
  level: info

server:
  port: 9470
  health_interval: 10s

telemetry:
  # OTLP/HTTP endpoint, e.g. http://localhost:4318. Empty disables export.
  endpoint: ""
  service_name: wisdomgate
`, dir)
}
