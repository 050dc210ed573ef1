package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config toggles instrumentation. Exporter settings would live here once
// an OTel backend is wired in.
type Config struct {
	Enabled bool
}

// ShutdownFunc flushes and tears down any configured exporters.
type ShutdownFunc func(context.Context) error

var (
	mu    sync.RWMutex
	sink  *slog.Logger
	state Config
)

func current() (*slog.Logger, Config) {
	mu.RLock()
	defer mu.RUnlock()
	return sink, state
}

// Setup installs the instrumentation sink. With no exporter configured,
// spans and counters are emitted through the structured logger.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	mu.Lock()
	sink = logger
	state = cfg
	mu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[OBSERVABILITY] instrumentation enabled")
		} else {
			logger.InfoContext(ctx, "[OBSERVABILITY] instrumentation disabled")
		}
	}
	return func(context.Context) error { return nil }, nil
}
