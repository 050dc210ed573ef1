package config

import "time"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Auth    AuthConfig    `yaml:"auth"`
	API     APIConfig     `yaml:"api"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

type ServerConfig struct {
	IP        string `yaml:"ip"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

type CacheConfig struct {
	Driver     string        `yaml:"driver"`
	GCInterval time.Duration `yaml:"gc_interval"`
	Redis      RedisConfig   `yaml:"redis,omitempty"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// APIConfig carries the cross-cutting request pipeline knobs: the
// version stamped on every response, per-route rate limiting defaults
// and the GET response cache lifetime.
type APIConfig struct {
	Version    string        `yaml:"version"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// RuntimeConfig gates behavior that differs between deployments:
// production hides internal error detail, cleanup enables deletion of
// superfluous identity records during reconciliation.
type RuntimeConfig struct {
	Mode    string `yaml:"mode"`
	Cleanup bool   `yaml:"cleanup"`
}

func (r RuntimeConfig) Production() bool {
	return r.Mode == "production"
}
