package cacheinfra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-session-cache/cache"
)

// DefaultRedisPrefix is prepended to every key written by RedisCache.
const DefaultRedisPrefix = "sessioncache:"

const redisScanCount = 256

// RedisCache is a cache.SharedCache stored in Redis.
// Result sets are msgpack encoded; decoded integers come back as int64 and floats as float64.
// Entries are found by canonical form alone, so keys that are not Portable are never
// stored or looked up.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis shared cache. An empty prefix uses DefaultRedisPrefix;
// a zero ttl keeps entries until they are cleared.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) key(namespace string, key cache.CacheKey) string {
	return r.prefix + cache.NamespacedKey(namespace, key)
}

// Get implements cache.SharedCache.
func (r *RedisCache) Get(ctx context.Context, namespace string, key cache.CacheKey) (*cache.ResultSet, bool, error) {
	if !key.Portable() {
		return nil, false, nil
	}

	data, err := r.client.Get(ctx, r.key(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	rs, err := decodeResultSet(data)
	if err != nil {
		return nil, false, err
	}
	return rs, true, nil
}

// Put implements cache.SharedCache.
func (r *RedisCache) Put(ctx context.Context, namespace string, key cache.CacheKey, rs *cache.ResultSet) error {
	if !key.Portable() {
		return nil
	}

	data, err := msgpack.Marshal(rs.Data())
	if err != nil {
		return fmt.Errorf("encode result set: %w", err)
	}

	if err := r.client.Set(ctx, r.key(namespace, key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear implements cache.SharedCache with SCAN and DEL over the namespace pattern.
func (r *RedisCache) Clear(ctx context.Context, namespace string) error {
	pattern := escapeGlob(r.prefix+namespace+cache.KeySeparator) + "*"

	iter := r.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()

	batch := make([]string, 0, redisScanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func decodeResultSet(data []byte) (*cache.ResultSet, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var rs cache.ResultSetData
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode result set: %w", err)
	}
	return cache.FromData(rs), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
