// Package storage provides the audit record backends: SQLite with WAL mode
// for production and an in-memory store for tests and development.
package storage
