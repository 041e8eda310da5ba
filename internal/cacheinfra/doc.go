// Package cacheinfra holds the storage behind session caches: the per-session
// LocalStore and its pool, and the shared second-level caches backed by sturdyc
// and Redis.
package cacheinfra
