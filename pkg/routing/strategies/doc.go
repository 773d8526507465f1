// Package strategies implements the upstream selection strategies:
// weighted round-robin, sticky per-caller assignment, least-loaded
// (health-based) selection, and manual pinning.
package strategies
