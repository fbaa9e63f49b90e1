// Package storage provides the durable key-value backends behind the
// reconciled series and its resume cursor.
//
// Backends:
//   - memory: process-local map (tests, ephemeral runs)
//   - file: one file per key in a directory
//   - redis: go-redis client, keys namespaced by prefix
//   - postgres: pgx pool, single hashwatch_kv table
//
// Two logical keys are used: KeySeriesSnapshot and KeyCursorTimestamp.
// A missing key is reported as ErrNotFound and means cold start.
package storage
