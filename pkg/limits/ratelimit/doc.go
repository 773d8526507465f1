// Package ratelimit provides the rate limiting primitives used to enforce
// per-token tier limits: a token bucket for sustained request rate with
// bursts, and a counting semaphore for concurrent in-flight requests.
package ratelimit
