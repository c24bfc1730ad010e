// Package config provides configuration loading and validation for
// shadowguard.
//
// Configuration file: /etc/shadowguard/config.yaml (default)
// Schema version: 1
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (queue sizes, capacities, thresholds).
//   - Invalid config on startup: the process refuses to start.
//
// Grounded on octoreflex/internal/config/config.go's shape (Defaults,
// Load, Validate, accumulated-error-list reporting), re-scoped from
// agent/escalation/gossip parameters to the pipeline's components.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/octoreflex/shadowguard/internal/quarantine"
)

// Version, GitCommit, BuildTime are injected by the Makefile via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure for shadowguard.
type Config struct {
	// SchemaVersion must be "1".
	SchemaVersion string `yaml:"schema_version"`

	// NodeID identifies this shadowguard instance in audit entries.
	// Default: hostname.
	NodeID string `yaml:"node_id"`

	Broker        BrokerConfig        `yaml:"broker"`
	Privacy       PrivacyConfig       `yaml:"privacy"`
	Alert         AlertConfig         `yaml:"alert"`
	Quarantine    QuarantineConfig    `yaml:"quarantine"`
	Audit         AuditConfig         `yaml:"audit"`
	SOAR          SOARConfig          `yaml:"soar"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// BrokerConfig holds event broker parameters.
type BrokerConfig struct {
	// QueueSize is the per-topic subscriber channel depth. If full, new
	// events are dropped and the drop counter is incremented.
	// Default: 1000.
	QueueSize int `yaml:"queue_size"`
}

// PrivacyConfig holds data-capture gating parameters (spec.md §4.F).
type PrivacyConfig struct {
	// Mode is "strict" (corporate traffic only, default) or "permissive"
	// (capture everything). Default: strict.
	Mode string `yaml:"mode"`

	// StrictPrivacyDefault controls how IsCorporateTraffic classifies a
	// destination that matches neither a personal domain nor a
	// sanctioned-SaaS domain: true = treat as non-corporate (skip),
	// false = treat as corporate (capture). Default: true.
	StrictPrivacyDefault bool `yaml:"strict_privacy_default"`
}

// AlertConfig holds alert store parameters.
type AlertConfig struct {
	// Capacity is the maximum number of alerts retained in the ring
	// buffer. Default: 100.
	Capacity int `yaml:"capacity"`
}

// QuarantineConfig holds quarantine registry parameters.
type QuarantineConfig struct {
	// DBPath is the absolute path to the bbolt quarantine database.
	// Default: /var/lib/shadowguard/quarantine.db.
	DBPath string `yaml:"db_path"`

	// AutoThreshold is the minimum threat score that triggers automatic
	// quarantine. Default: 0.90.
	AutoThreshold float64 `yaml:"auto_threshold"`
}

// AuditConfig holds audit ledger parameters.
type AuditConfig struct {
	// LogPath is the absolute path to the append-only ledger file.
	// Default: /var/lib/shadowguard/audit.log.
	LogPath string `yaml:"log_path"`
}

// SOARConfig holds SOAR engine parameters.
type SOARConfig struct {
	// ActionBucketCapacity bounds how many enforcement actions the
	// engine may issue per refill period. Default: 20.
	ActionBucketCapacity int `yaml:"action_bucket_capacity"`

	// ActionBucketRefillPeriod is the bucket's refill interval.
	// Default: 60s.
	ActionBucketRefillPeriod time.Duration `yaml:"action_bucket_refill_period"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	// Default: 127.0.0.1:9091.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: json.
	LogFormat string `yaml:"log_format"`
}

const (
	DefaultQuarantineDBPath = "/var/lib/shadowguard/quarantine.db"
	DefaultAuditLogPath     = "/var/lib/shadowguard/audit.log"
)

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	hostname, _ := os.Hostname()
	return Config{
		SchemaVersion: "1",
		NodeID:        hostname,
		Broker: BrokerConfig{
			QueueSize: 1000,
		},
		Privacy: PrivacyConfig{
			Mode:                 "strict",
			StrictPrivacyDefault: true,
		},
		Alert: AlertConfig{
			Capacity: 100,
		},
		Quarantine: QuarantineConfig{
			DBPath:        DefaultQuarantineDBPath,
			AutoThreshold: quarantine.AutoQuarantineThreshold,
		},
		Audit: AuditConfig{
			LogPath: DefaultAuditLogPath,
		},
		SOAR: SOARConfig{
			ActionBucketCapacity:     20,
			ActionBucketRefillPeriod: 60 * time.Second,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// Load reads and validates a config file from the given path. Returns
// the merged config (defaults overridden by file values).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides layers the environment-variable overrides spec.md
// §6 "Configuration (environment)" calls for on top of the file
// config. SHADOWGUARD_CAPTURE_INTERFACE and SHADOWGUARD_BROKER_ADDR
// are read by external collaborators (the packet capture process, the
// durable broker deployment) and are intentionally not consumed here.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHADOWGUARD_PRIVACY_MODE"); v != "" {
		switch strings.ToLower(v) {
		case "on", "strict", "true", "1":
			cfg.Privacy.Mode = "strict"
		case "off", "permissive", "false", "0":
			cfg.Privacy.Mode = "permissive"
		}
	}
	if v := os.Getenv("SHADOWGUARD_METRICS_ADDR"); v != "" {
		cfg.Observability.MetricsAddr = v
	}
	if v := os.Getenv("SHADOWGUARD_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}

// Validate checks all config fields for correctness, accumulating every
// violation into a single descriptive error.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.NodeID == "" {
		errs = append(errs, "node_id must not be empty")
	}
	if cfg.Broker.QueueSize < 1 {
		errs = append(errs, fmt.Sprintf("broker.queue_size must be >= 1, got %d", cfg.Broker.QueueSize))
	}
	if cfg.Privacy.Mode != "strict" && cfg.Privacy.Mode != "permissive" {
		errs = append(errs, fmt.Sprintf("privacy.mode must be \"strict\" or \"permissive\", got %q", cfg.Privacy.Mode))
	}
	if cfg.Alert.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("alert.capacity must be >= 1, got %d", cfg.Alert.Capacity))
	}
	if cfg.Quarantine.AutoThreshold < 0.0 || cfg.Quarantine.AutoThreshold > 1.0 {
		errs = append(errs, fmt.Sprintf("quarantine.auto_threshold must be in [0.0, 1.0], got %f", cfg.Quarantine.AutoThreshold))
	}
	if cfg.SOAR.ActionBucketCapacity < 1 {
		errs = append(errs, fmt.Sprintf("soar.action_bucket_capacity must be >= 1, got %d", cfg.SOAR.ActionBucketCapacity))
	}
	if cfg.SOAR.ActionBucketRefillPeriod < time.Second {
		errs = append(errs, fmt.Sprintf("soar.action_bucket_refill_period must be >= 1s, got %s", cfg.SOAR.ActionBucketRefillPeriod))
	}
	if cfg.Observability.MetricsAddr == "" {
		errs = append(errs, "observability.metrics_addr must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
