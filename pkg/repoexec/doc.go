// Package repoexec drives sessions through a go-repository-bun repository
// instead of hand-written SQL. Statement ids are routed to repository
// operations; reads return a single "record" (or "count") column holding the
// repository values. Record reads a row back, copying pointer records so callers
// cannot change what later cached reads return.
package repoexec
