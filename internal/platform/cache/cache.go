package cache

import (
	"context"
	"time"
)

// Store is a best-effort TTL key/value store. It is never a source of
// truth: losing every entry costs throughput, not correctness, so
// callers treat misses and errors alike as "not cached".
//
// Values are raw bytes so that memory and redis drivers behave the same;
// callers own serialization.
type Store interface {
	// Set stores value under key, replacing any existing entry,
	// expiring after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the stored value. ok is false when the key is absent
	// or the entry has expired; expiry is lazy, checked on access.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Has reports presence with the same expiry semantics as Get.
	Has(ctx context.Context, key string) (bool, error)
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry owned by this store.
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

// Driver identifiers supported by the cache factory.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Memory *MemoryConfig
	Redis  *RedisConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
