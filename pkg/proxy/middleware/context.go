package middleware

import (
	"context"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context.
const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// UserKey stores the user identity resolved by authentication.
	UserKey contextKey = "user"

	// TierKey stores the rate-limit tier resolved by authentication.
	TierKey contextKey = "tier"

	// UpstreamKey stores the upstream name chosen by routing.
	UpstreamKey contextKey = "upstream"

	// APIVersionKey stores the gateway API version of the forwarded request.
	APIVersionKey contextKey = "api_version"

	// ResourceKey stores the resource kind of the forwarded request.
	ResourceKey contextKey = "resource"

	// metaKey stores the mutable per-request metadata holder.
	metaKey contextKey = "request_meta"
)

// requestMeta holds identity fields set deep in the handler chain. Because
// context values only flow downward, outer middleware (logging, audit) read
// these through a holder installed at the top of the chain instead.
type requestMeta struct {
	user       string
	tier       string
	upstream   string
	apiVersion string
	resource   string
}

// WithRequestMeta installs the mutable metadata holder. The request ID
// middleware calls this once per request.
func WithRequestMeta(ctx context.Context) context.Context {
	return context.WithValue(ctx, metaKey, &requestMeta{})
}

func getMeta(ctx context.Context) *requestMeta {
	meta, _ := ctx.Value(metaKey).(*requestMeta)
	return meta
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

// GetUser extracts the authenticated user from the context.
func GetUser(ctx context.Context) string {
	if meta := getMeta(ctx); meta != nil && meta.user != "" {
		return meta.user
	}
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

// WithUser records the authenticated user. When the metadata holder is
// present the value is also visible to outer middleware.
func WithUser(ctx context.Context, user string) context.Context {
	if meta := getMeta(ctx); meta != nil {
		meta.user = user
		return ctx
	}
	return context.WithValue(ctx, UserKey, user)
}

// GetTier extracts the rate-limit tier from the context.
func GetTier(ctx context.Context) string {
	if meta := getMeta(ctx); meta != nil && meta.tier != "" {
		return meta.tier
	}
	if tier, ok := ctx.Value(TierKey).(string); ok {
		return tier
	}
	return ""
}

// WithTier records the rate-limit tier.
func WithTier(ctx context.Context, tier string) context.Context {
	if meta := getMeta(ctx); meta != nil {
		meta.tier = tier
		return ctx
	}
	return context.WithValue(ctx, TierKey, tier)
}

// GetUpstream extracts the routed upstream name from the context.
func GetUpstream(ctx context.Context) string {
	if meta := getMeta(ctx); meta != nil && meta.upstream != "" {
		return meta.upstream
	}
	if upstream, ok := ctx.Value(UpstreamKey).(string); ok {
		return upstream
	}
	return ""
}

// WithUpstream records the upstream name chosen by routing.
func WithUpstream(ctx context.Context, upstream string) context.Context {
	if meta := getMeta(ctx); meta != nil {
		meta.upstream = upstream
		return ctx
	}
	return context.WithValue(ctx, UpstreamKey, upstream)
}

// GetAPIVersion extracts the gateway API version from the context.
func GetAPIVersion(ctx context.Context) string {
	if meta := getMeta(ctx); meta != nil && meta.apiVersion != "" {
		return meta.apiVersion
	}
	if version, ok := ctx.Value(APIVersionKey).(string); ok {
		return version
	}
	return ""
}

// WithAPIVersion records the gateway API version of a forwarded request.
func WithAPIVersion(ctx context.Context, version string) context.Context {
	if meta := getMeta(ctx); meta != nil {
		meta.apiVersion = version
		return ctx
	}
	return context.WithValue(ctx, APIVersionKey, version)
}

// GetResource extracts the resource kind from the context.
func GetResource(ctx context.Context) string {
	if meta := getMeta(ctx); meta != nil && meta.resource != "" {
		return meta.resource
	}
	if resource, ok := ctx.Value(ResourceKey).(string); ok {
		return resource
	}
	return ""
}

// WithResource records the resource kind of a forwarded request.
func WithResource(ctx context.Context, resource string) context.Context {
	if meta := getMeta(ctx); meta != nil {
		meta.resource = resource
		return ctx
	}
	return context.WithValue(ctx, ResourceKey, resource)
}
