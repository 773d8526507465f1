package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by token verification.
var (
	// ErrInvalidToken indicates the token is unknown or failed verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenDisabled indicates the token exists but has been disabled.
	ErrTokenDisabled = errors.New("token disabled")

	// ErrNoToken indicates no token was found in the request.
	ErrNoToken = errors.New("no token found")
)

// TokenInfo holds the identity associated with a verified bearer token.
type TokenInfo struct {
	// Token is the bearer token value.
	Token string `yaml:"token"`

	// User is the user identifier associated with the token.
	User string `yaml:"user"`

	// Enabled controls whether the token is accepted. Nil means enabled.
	Enabled *bool `yaml:"enabled"`

	// Tier names the rate-limit tier applied to this token.
	Tier string `yaml:"tier"`
}

// IsEnabled reports whether the token is accepted.
func (t *TokenInfo) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Verifier validates bearer tokens and resolves the associated identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*TokenInfo, error)
}

// TokenSource defines where to extract bearer tokens from.
type TokenSource struct {
	Type   string // "header" or "query"
	Name   string // header name or query parameter
	Scheme string // optional scheme prefix, e.g. "Bearer"
}

// ParseSources parses source strings of the form "header:<name>[:<scheme>]"
// or "query:<param>" into TokenSource values.
func ParseSources(specs []string) ([]TokenSource, error) {
	sources := make([]TokenSource, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid token source %q", spec)
		}
		src := TokenSource{Type: parts[0], Name: parts[1]}
		if len(parts) > 2 {
			src.Scheme = parts[2]
		}
		switch src.Type {
		case "header", "query":
		default:
			return nil, fmt.Errorf("invalid token source type %q", parts[0])
		}
		sources = append(sources, src)
	}
	return sources, nil
}
