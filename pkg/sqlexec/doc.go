// Package sqlexec runs session statements against SQLite, PostgreSQL or MySQL
// through bun. Statement SQL uses "?" placeholders, which bun formats for the
// dialect in use.
package sqlexec
