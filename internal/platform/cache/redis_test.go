package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedis(Config{
		Driver: DriverRedis,
		Redis:  &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })
	return store, mr
}

func TestRedisStore_SetGet(t *testing.T) {
	store, _ := newTestRedis(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(value) != "v" {
		t.Fatalf("Get = (%q, %v), expected (\"v\", true)", value, ok)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mr.FastForward(11 * time.Second)

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("entry survived past its ttl")
	}
}

func TestRedisStore_HasDeleteClear(t *testing.T) {
	store, _ := newTestRedis(t)
	ctx := context.Background()

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Set(ctx, "b", []byte("2"), time.Minute)

	if ok, _ := store.Has(ctx, "a"); !ok {
		t.Fatal("Has = false for live entry")
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := store.Has(ctx, "a"); ok {
		t.Fatal("Has = true after Delete")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, _ := store.Has(ctx, "b"); ok {
		t.Fatal("Has = true after Clear")
	}
}

func TestRedisStore_RequiresAddr(t *testing.T) {
	if _, err := NewRedis(Config{Driver: DriverRedis, Redis: &RedisConfig{}}); err == nil {
		t.Fatal("NewRedis accepted an empty address")
	}
	if _, err := NewRedis(Config{Driver: DriverRedis}); err == nil {
		t.Fatal("NewRedis accepted missing redis config")
	}
}
