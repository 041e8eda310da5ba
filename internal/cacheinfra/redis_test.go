package cacheinfra

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-session-cache/cache"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "user::", want: "user::"},
		{in: "a*b", want: `a\*b`},
		{in: "a?[b]", want: `a\?\[b\]`},
		{in: `a\b`, want: `a\\b`},
	}

	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRedisCache_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	rc := NewRedisCache(client, "", 0)
	key := cache.NewCacheKey("user.selectAll", cache.NoRowBounds)

	if got := rc.key("user", key); got != DefaultRedisPrefix+"user::"+key.String() {
		t.Errorf("unexpected redis key %s", got)
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCache(client, "test:", time.Minute)
	ctx := context.Background()

	key := cache.NewCacheKey("user.selectUserById", cache.NoRowBounds, "1")
	rs := cache.NewResultSet([]string{"id", "name", "score"}, [][]any{{int64(1), "alice", 1.5}})

	if _, ok, err := rc.Get(ctx, "user", key); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := rc.Put(ctx, "user", key, rs); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok, err := rc.Get(ctx, "user", key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}

	id, err := cache.Value[int64](got, 0, "id")
	if err != nil || id != 1 {
		t.Errorf("expected id 1, got %v (%v)", id, err)
	}
	name, err := cache.Value[string](got, 0, "name")
	if err != nil || name != "alice" {
		t.Errorf("expected name alice, got %v (%v)", name, err)
	}
}

func TestRedisCache_Clear(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCache(client, "test:", time.Minute)
	ctx := context.Background()
	rs := cache.NewResultSet([]string{"id"}, [][]any{{int64(1)}})

	userKey := cache.NewCacheKey("user.selectUserById", cache.NoRowBounds, 1)
	orderKey := cache.NewCacheKey("order.selectAll", cache.NoRowBounds)

	if err := rc.Put(ctx, "user", userKey, rs); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := rc.Put(ctx, "order", orderKey, rs); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if err := rc.Clear(ctx, "user"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, ok, _ := rc.Get(ctx, "user", userKey); ok {
		t.Error("expected user namespace to be cleared")
	}
	if _, ok, _ := rc.Get(ctx, "order", orderKey); !ok {
		t.Error("expected order namespace to survive")
	}
}

func TestRedisCache_SkipsNonPortableKeys(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCache(client, "test:", time.Minute)
	ctx := context.Background()
	rs := cache.NewResultSet([]string{"id"}, [][]any{{int64(1)}})

	key := cache.NewCacheKey("user.filter", cache.NoRowBounds, func() {})
	if key.Portable() {
		t.Fatal("expected a function parameter to make the key non-portable")
	}

	if err := rc.Put(ctx, "user", key, rs); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if n, err := client.Exists(ctx, rc.key("user", key)).Result(); err != nil || n != 0 {
		t.Errorf("expected nothing written, got %d (%v)", n, err)
	}
	if _, ok, err := rc.Get(ctx, "user", key); ok || err != nil {
		t.Errorf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisCache_UnexportedFieldsKeepReadsApart(t *testing.T) {
	type userRef struct{ id int }

	client := setupTestRedis(t)
	rc := NewRedisCache(client, "test:", time.Minute)
	ctx := context.Background()

	first := cache.NewCacheKey("user.selectUserById", cache.NoRowBounds, userRef{id: 1})
	second := cache.NewCacheKey("user.selectUserById", cache.NoRowBounds, userRef{id: 2})

	if err := rc.Put(ctx, "user", first, cache.NewResultSet([]string{"id"}, [][]any{{int64(1)}})); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, ok, err := rc.Get(ctx, "user", second); ok || err != nil {
		t.Errorf("expected miss for a different unexported value, got ok=%v err=%v", ok, err)
	}
}
