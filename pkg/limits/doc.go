// Package limits enforces per-user rate limits organized into tiers.
//
// Each authenticated user is assigned a tier (from their token definition)
// whose limits cap sustained request rate, burst size, and concurrent
// in-flight requests. The Manager builds one limiter per user on demand and
// records per-user usage counters in a storage backend.
//
// Rejected requests are answered with 429 and a Retry-After header before
// any upstream is contacted.
package limits
