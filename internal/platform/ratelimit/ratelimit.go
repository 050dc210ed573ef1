// Package ratelimit implements a fixed-window request counter on top of
// the platform cache. Windows reset at fixed boundaries, so bursts that
// straddle a boundary can briefly pass twice the limit; read-then-write
// increments are not atomic either, so true parallel callers can exceed
// the limit by a small margin. Both are accepted properties of this
// limiter, not defects.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"botdash-server-go/internal/platform/cache"
)

// DefaultWindow is used when callers do not configure one.
const DefaultWindow = 60 * time.Second

const keyPrefix = "rate_limit:"

// Limiter counts requests per identifier per window.
type Limiter struct {
	store cache.Store
}

func New(store cache.Store) *Limiter {
	return &Limiter{store: store}
}

// Check reports whether identifier has exhausted limit within the
// current window. Below the limit the counter is incremented and the
// window's remaining life refreshed; at or above it, the counter is
// left untouched. Cache failures count as an empty window: the limiter
// is best-effort and never blocks traffic on its own outage.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int, window time.Duration) bool {
	if window <= 0 {
		window = DefaultWindow
	}
	key := keyPrefix + identifier

	count := 0
	if raw, ok, err := l.store.Get(ctx, key); err == nil && ok {
		if n, err := strconv.Atoi(string(raw)); err == nil {
			count = n
		}
	}

	if count >= limit {
		return true
	}

	_ = l.store.Set(ctx, key, []byte(strconv.Itoa(count+1)), window)
	return false
}
