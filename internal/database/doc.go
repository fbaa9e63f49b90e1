// Package database provides PostgreSQL connection pool setup for the
// postgres storage backend.
package database
