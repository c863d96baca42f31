package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.Storage != "badger" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.RetentionDays)
	}
	if cfg.AllowDevAuthBypass {
		t.Error("auth bypass must default to disabled")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "port: \"9000\"\nstorage: sqlite\napi_key: from-file\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("API_KEY", "from-env")
	t.Setenv("AIRSENSE_STORAGE", "memory")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want file value 9000", cfg.Port)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("APIKey = %q, env must override the file", cfg.APIKey)
	}
	if cfg.Storage != "memory" {
		t.Errorf("Storage = %q, env must override the file", cfg.Storage)
	}
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("AIRSENSE_STORAGE", "mongodb")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected an error for an unsupported storage backend")
	}
}

func TestLoadConfig_BypassGatedOnDevelopment(t *testing.T) {
	t.Setenv("AIRSENSE_ALLOW_DEV_AUTH_BYPASS", "true")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.AllowDevAuthBypass {
		t.Error("bypass must be ignored outside the development environment")
	}

	t.Setenv("AIRSENSE_ENV", "development")
	cfg, err = LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.AllowDevAuthBypass {
		t.Error("bypass should be honored in development")
	}
}
