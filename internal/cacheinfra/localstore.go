package cacheinfra

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/goliatone/go-session-cache/cache"
)

type localEntry struct {
	key cache.CacheKey
	rs  *cache.ResultSet
}

// bucketIndex is the hash-to-entries index of a LocalStore.
// *lru.Cache satisfies it for bounded stores, mapBuckets for unbounded ones.
type bucketIndex interface {
	Get(key uint64) ([]localEntry, bool)
	Peek(key uint64) ([]localEntry, bool)
	Add(key uint64, value []localEntry) bool
	Values() [][]localEntry
	Purge()
}

// mapBuckets never evicts.
type mapBuckets map[uint64][]localEntry

func (m mapBuckets) Get(key uint64) ([]localEntry, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapBuckets) Peek(key uint64) ([]localEntry, bool) { return m.Get(key) }

func (m mapBuckets) Add(key uint64, value []localEntry) bool {
	m[key] = value
	return false
}

func (m mapBuckets) Values() [][]localEntry {
	values := make([][]localEntry, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}

func (m mapBuckets) Purge() { clear(m) }

// LocalStore is the cache owned by a single session.
// Entries are bucketed by key hash and matched by full key equality inside a bucket.
// It is not safe for concurrent use; the owning session serializes access.
type LocalStore struct {
	buckets bucketIndex
}

// Get returns the result stored for key.
func (s *LocalStore) Get(key cache.CacheKey) (*cache.ResultSet, bool) {
	bucket, ok := s.buckets.Get(key.Hash())
	if !ok {
		return nil, false
	}
	for _, e := range bucket {
		if e.key.Equal(key) {
			return e.rs, true
		}
	}
	return nil, false
}

// Put stores rs under key, replacing an equal key if present.
func (s *LocalStore) Put(key cache.CacheKey, rs *cache.ResultSet) {
	bucket, _ := s.buckets.Peek(key.Hash())

	next := make([]localEntry, 0, len(bucket)+1)
	for _, e := range bucket {
		if !e.key.Equal(key) {
			next = append(next, e)
		}
	}
	next = append(next, localEntry{key: key, rs: rs})

	s.buckets.Add(key.Hash(), next)
}

// Len returns the number of stored entries.
func (s *LocalStore) Len() int {
	n := 0
	for _, bucket := range s.buckets.Values() {
		n += len(bucket)
	}
	return n
}

// Clear drops every entry and returns how many were dropped.
func (s *LocalStore) Clear() int {
	n := s.Len()
	s.buckets.Purge()
	return n
}

// LocalStorePool recycles session stores of a fixed capacity.
type LocalStorePool struct {
	pool *sync.Pool
}

// NewLocalStorePool creates a pool of stores holding at most capacity buckets each.
// A zero capacity makes the stores unbounded: entries only leave on Clear.
func NewLocalStorePool(capacity int) *LocalStorePool {
	if capacity < 0 {
		panic(fmt.Errorf("local store capacity must be non-negative, got %d", capacity))
	}

	return &LocalStorePool{
		pool: &sync.Pool{
			New: func() any {
				if capacity == 0 {
					return &LocalStore{buckets: mapBuckets{}}
				}
				buckets, err := lru.New[uint64, []localEntry](capacity)
				if err != nil {
					// capacity was checked above
					panic(fmt.Errorf("failed to create local store: %w", err))
				}
				return &LocalStore{buckets: buckets}
			},
		},
	}
}

// Get returns an empty store.
func (p *LocalStorePool) Get() *LocalStore {
	return p.pool.Get().(*LocalStore)
}

// Put empties s and returns it to the pool.
func (p *LocalStorePool) Put(s *LocalStore) {
	if s == nil {
		return
	}
	s.buckets.Purge()
	p.pool.Put(s)
}
