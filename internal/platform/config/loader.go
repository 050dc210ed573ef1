package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

// Loader reads configuration from an optional YAML file layered over
// DefaultConfig, with environment variables taking final precedence for
// deployment secrets.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load assembles the effective configuration. A missing config file is
// not an error; defaults plus environment variables are a complete setup.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// A missing .env simply means plain process environment.
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv("BOTDASH_CONFIG")
	}
	if path == "" {
		path = defaultPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BOTDASH_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("BOTDASH_SESSION_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("BOTDASH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BOTDASH_MODE"); v != "" {
		cfg.Runtime.Mode = v
	}
	if v := os.Getenv("BOTDASH_RECONCILE_CLEANUP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Runtime.Cleanup = b
		}
	}
	if v := os.Getenv("BOTDASH_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("BOTDASH_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
}
