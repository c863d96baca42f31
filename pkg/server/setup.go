package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/storage"
	"github.com/nesarahmed/airsense/pkg/storage/badger"
	"github.com/nesarahmed/airsense/pkg/storage/memory"
	"github.com/nesarahmed/airsense/pkg/storage/sqlite"
)

// Config holds server configuration. Values come from an optional
// YAML file, overridden by environment variables.
type Config struct {
	Port   string `yaml:"port"`
	APIKey string `yaml:"api_key"`

	// Env gates development-only behavior. "production" unless set.
	Env string `yaml:"env"`

	// AllowDevAuthBypass skips API key checks. Only honored when Env
	// is "development"; defaults to disabled.
	AllowDevAuthBypass bool `yaml:"allow_dev_auth_bypass"`

	// Storage selects the backend: badger (default), sqlite, memory.
	Storage    string `yaml:"storage"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`

	RetentionDays int `yaml:"retention_days"`

	DefaultLatitude  float64 `yaml:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude"`
}

// LoadConfig loads configuration from the YAML file at path (ignored
// when empty or missing) and then applies environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Port:          config.DefaultPort,
		Env:           "production",
		Storage:       config.DefaultStorage,
		DataDir:       config.DefaultDataDir,
		SQLitePath:    config.DefaultSQLitePath,
		RetentionDays: config.DefaultRetentionDays,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Printf("Config file %s not found, using defaults", path)
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	switch cfg.Storage {
	case "badger", "sqlite", "memory":
	default:
		return cfg, fmt.Errorf("unsupported storage backend: %q", cfg.Storage)
	}

	if cfg.AllowDevAuthBypass && cfg.Env != "development" {
		log.Println("Ignoring auth bypass flag outside development environment")
		cfg.AllowDevAuthBypass = false
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.APIKey = getEnv("API_KEY", cfg.APIKey)
	cfg.Env = getEnv("AIRSENSE_ENV", cfg.Env)
	cfg.Storage = getEnv("AIRSENSE_STORAGE", cfg.Storage)
	cfg.DataDir = getEnv("AIRSENSE_DATA_DIR", cfg.DataDir)
	cfg.SQLitePath = getEnv("AIRSENSE_SQLITE_PATH", cfg.SQLitePath)
	cfg.RetentionDays = int(getEnvInt64("AIRSENSE_RETENTION_DAYS", int64(cfg.RetentionDays)))
	cfg.AllowDevAuthBypass = getEnvBool("AIRSENSE_ALLOW_DEV_AUTH_BYPASS", cfg.AllowDevAuthBypass)
	cfg.DefaultLatitude = getEnvFloat("AIRSENSE_DEFAULT_LATITUDE", cfg.DefaultLatitude)
	cfg.DefaultLongitude = getEnvFloat("AIRSENSE_DEFAULT_LONGITUDE", cfg.DefaultLongitude)
}

// InitializeStorage opens the configured storage backend.
func InitializeStorage(cfg Config) (storage.Store, error) {
	switch cfg.Storage {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		log.Printf("Initializing SQLite storage at %s", cfg.SQLitePath)
		return sqlite.New(cfg.SQLitePath)
	case "memory":
		log.Println("Initializing in-memory storage (data is lost on restart)")
		return memory.New(), nil
	default:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		log.Printf("Initializing BadgerDB storage at %s", cfg.DataDir)
		return badger.New(badger.Config{Path: cfg.DataDir})
	}
}

// getEnv gets a string from an environment variable or returns the default.
func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from an environment variable or returns the default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}

// getEnvFloat gets a float64 from an environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %v", key, val, defaultValue)
	}
	return defaultValue
}

// getEnvBool gets a bool from an environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %v", key, val, defaultValue)
	}
	return defaultValue
}
