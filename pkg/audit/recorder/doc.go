// Package recorder buffers audit records on a channel and writes them to
// storage from a background worker, so a slow or failing audit backend
// cannot stall proxied requests. The middleware records exactly one entry
// per request once the handler chain completes.
package recorder
