package config

import (
	"os"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config must validate, got: %v", err)
	}
}

func TestValidateRejectsBadSchemaVersion(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "2"
	if err := Validate(&cfg); err == nil {
		t.Errorf("expected an error for an unsupported schema version")
	}
}

func TestValidateRejectsBadPrivacyMode(t *testing.T) {
	cfg := Defaults()
	cfg.Privacy.Mode = "loose"
	if err := Validate(&cfg); err == nil {
		t.Errorf("expected an error for an unknown privacy mode")
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Defaults()
	cfg.Quarantine.AutoThreshold = 1.5
	if err := Validate(&cfg); err == nil {
		t.Errorf("expected an error for an out-of-range auto_threshold")
	}
}

func TestApplyEnvOverridesPrivacyMode(t *testing.T) {
	os.Setenv("SHADOWGUARD_PRIVACY_MODE", "permissive")
	defer os.Unsetenv("SHADOWGUARD_PRIVACY_MODE")

	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Privacy.Mode != "permissive" {
		t.Errorf("got privacy.mode %q, want permissive", cfg.Privacy.Mode)
	}
}

func TestApplyEnvOverridesIgnoresUnsetVars(t *testing.T) {
	os.Unsetenv("SHADOWGUARD_PRIVACY_MODE")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Privacy.Mode != "strict" {
		t.Errorf("got privacy.mode %q, want strict (unchanged default)", cfg.Privacy.Mode)
	}
}

func TestValidateAccumulatesMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "9"
	cfg.Broker.QueueSize = 0
	cfg.Alert.Capacity = 0
	err := Validate(&cfg)
	if err == nil {
		t.Fatalf("expected an error")
	}
}
