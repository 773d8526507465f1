package auth

import (
	"context"
	"sync"
)

// StaticVerifier validates tokens against an in-memory allowlist. The list
// can be replaced atomically, which the token file watcher uses for hot
// reload.
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]*TokenInfo
}

// NewStaticVerifier creates a verifier from the given tokens.
func NewStaticVerifier(tokens []TokenInfo) *StaticVerifier {
	v := &StaticVerifier{}
	v.Replace(tokens)
	return v
}

// Verify checks the token against the allowlist.
func (v *StaticVerifier) Verify(_ context.Context, token string) (*TokenInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	if !info.IsEnabled() {
		return nil, ErrTokenDisabled
	}

	return info, nil
}

// Replace atomically swaps the entire allowlist.
func (v *StaticVerifier) Replace(tokens []TokenInfo) {
	m := make(map[string]*TokenInfo, len(tokens))
	for i := range tokens {
		t := tokens[i]
		if t.Tier == "" {
			t.Tier = "default"
		}
		m[t.Token] = &t
	}

	v.mu.Lock()
	v.tokens = m
	v.mu.Unlock()
}

// Merge adds or updates tokens without removing existing ones. Used to
// overlay token file contents on the inline configuration.
func (v *StaticVerifier) Merge(tokens []TokenInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range tokens {
		t := tokens[i]
		if t.Tier == "" {
			t.Tier = "default"
		}
		v.tokens[t.Token] = &t
	}
}

// Len returns the number of configured tokens.
func (v *StaticVerifier) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tokens)
}
