package logging

import "context"

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UserKey is the context key for user identifiers.
	UserKey contextKey = "user"

	// UpstreamKey is the context key for the selected upstream name.
	UpstreamKey contextKey = "upstream"

	// ClusterKey is the context key for Ray cluster names.
	ClusterKey contextKey = "cluster"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUser adds a user identifier to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the user identifier from the context.
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

// WithUpstream adds the selected upstream name to the context.
func WithUpstream(ctx context.Context, upstream string) context.Context {
	return context.WithValue(ctx, UpstreamKey, upstream)
}

// GetUpstream retrieves the selected upstream name from the context.
func GetUpstream(ctx context.Context) string {
	if upstream, ok := ctx.Value(UpstreamKey).(string); ok {
		return upstream
	}
	return ""
}

// WithCluster adds a Ray cluster name to the context.
func WithCluster(ctx context.Context, cluster string) context.Context {
	return context.WithValue(ctx, ClusterKey, cluster)
}

// GetCluster retrieves the Ray cluster name from the context.
func GetCluster(ctx context.Context) string {
	if cluster, ok := ctx.Value(ClusterKey).(string); ok {
		return cluster
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for slog.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if user := GetUser(ctx); user != "" {
		fields = append(fields, "user", user)
	}
	if upstream := GetUpstream(ctx); upstream != "" {
		fields = append(fields, "upstream", upstream)
	}
	if cluster := GetCluster(ctx); cluster != "" {
		fields = append(fields, "cluster", cluster)
	}

	return fields
}
