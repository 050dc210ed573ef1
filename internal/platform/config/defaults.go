package config

import "time"

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      8080,
			StaticDir: "./web",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Storage: StorageConfig{
			DSN: "data/botdash.db",
		},
		Cache: CacheConfig{
			Driver:     "memory",
			GCInterval: time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		API: APIConfig{
			Version:    "1.0",
			RateLimit:  60,
			RateWindow: time.Minute,
			CacheTTL:   60 * time.Second,
		},
		Runtime: RuntimeConfig{
			Mode: "development",
		},
	}
}
