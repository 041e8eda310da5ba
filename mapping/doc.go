// Package mapping holds the explicit statement registry: each statement id is
// bound at load time to its kind, SQL text, declared parameters and cache flags.
//
// Sessions resolve ids through a Registry instead of dispatching on mapper
// interfaces, so an unknown id or a wrong number of parameters is reported as
// an error before any SQL runs.
package mapping
