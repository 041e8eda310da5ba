package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-session-cache/cache"
)

// ToSturdycOptions converts the shared cache sizing to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage are passed directly
// to sturdyc.New() and are not included here.
func ToSturdycOptions(cfg cache.SharedConfig) []sturdyc.Option {
	var options []sturdyc.Option

	if cfg.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	return options
}

// sharedEntry keeps the full key next to the result so a hit is confirmed with Equal.
type sharedEntry struct {
	key cache.CacheKey
	rs  *cache.ResultSet
}

// SturdycCache is an in-process cache.SharedCache backed by a sturdyc client.
// Keys are "<namespace>::<canonical key>", so a namespace is cleared by prefix.
// Two reads sharing a canonical form displace each other instead of sharing a result.
type SturdycCache struct {
	client *sturdyc.Client[sharedEntry]
}

// NewSturdycCache validates cfg and creates the sturdyc client.
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
func NewSturdycCache(cfg cache.SharedConfig) (*SturdycCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[sharedEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		ToSturdycOptions(cfg)...,
	)

	return &SturdycCache{client: client}, nil
}

// Get implements cache.SharedCache.
func (s *SturdycCache) Get(_ context.Context, namespace string, key cache.CacheKey) (*cache.ResultSet, bool, error) {
	entry, ok := s.client.Get(cache.NamespacedKey(namespace, key))
	if !ok || !entry.key.Equal(key) {
		return nil, false, nil
	}
	return entry.rs, true, nil
}

// Put implements cache.SharedCache.
func (s *SturdycCache) Put(_ context.Context, namespace string, key cache.CacheKey, rs *cache.ResultSet) error {
	s.client.Set(cache.NamespacedKey(namespace, key), sharedEntry{key: key, rs: rs})
	return nil
}

// Clear implements cache.SharedCache by deleting every key under the namespace prefix.
func (s *SturdycCache) Clear(_ context.Context, namespace string) error {
	prefix := namespace + cache.KeySeparator

	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}

	return nil
}

// Size returns the number of entries currently held.
func (s *SturdycCache) Size() int {
	return s.client.Size()
}
