// Package storage persists per-user request counters behind the Store
// interface. The memory backend is ephemeral; the SQLite backend survives
// restarts and is the default for production deployments.
package storage
