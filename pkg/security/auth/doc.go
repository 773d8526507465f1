// Package auth provides bearer token authentication for the serverless
// gateway proxy.
//
// Two verification modes are supported. Static mode checks tokens against an
// allowlist built from the configuration and an optional token file that is
// hot-reloaded on change. Upstream mode delegates verification to the
// gateway itself and caches positive results with a TTL.
//
// The middleware rejects unauthenticated requests with 401 before any
// forwarding, routing, or rate-limit accounting happens.
package auth
