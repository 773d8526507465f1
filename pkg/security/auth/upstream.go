package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// UpstreamVerifier validates tokens by calling the gateway's programs
// endpoint with the candidate token. A 200 means the gateway accepts the
// token. Positive results are cached with a TTL so each request does not
// cost an extra round trip; negative results are never cached.
type UpstreamVerifier struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	info    *TokenInfo
	expires time.Time
}

// NewUpstreamVerifier creates a verifier that delegates to the gateway at
// baseURL. If client is nil a default with a 10s timeout is used.
func NewUpstreamVerifier(baseURL string, ttl time.Duration, client *http.Client) *UpstreamVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &UpstreamVerifier{
		baseURL: baseURL,
		client:  client,
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Verify checks the token against the cache, then against the gateway.
func (v *UpstreamVerifier) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	if info, ok := v.cached(token); ok {
		return info, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/v1/programs/", nil)
	if err != nil {
		return nil, fmt.Errorf("building verification request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifying token against gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// The gateway does not tell us who the token belongs to, so derive
		// a stable pseudonymous identity from the token itself. Rate limits,
		// sticky routing, and usage records all key on the user, and an
		// empty user would collapse every client into one bucket.
		info := &TokenInfo{Token: token, User: tokenIdentity(token), Tier: "default"}
		v.store(token, info)
		return info, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("gateway verification returned status %d", resp.StatusCode)
	}
}

func (v *UpstreamVerifier) cached(token string) (*TokenInfo, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	entry, ok := v.cache[token]
	if !ok || v.now().After(entry.expires) {
		return nil, false
	}
	return entry.info, true
}

func (v *UpstreamVerifier) store(token string, info *TokenInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Opportunistic cleanup keeps the cache from growing unbounded under
	// token churn.
	if len(v.cache) > 10000 {
		now := v.now()
		for k, e := range v.cache {
			if now.After(e.expires) {
				delete(v.cache, k)
			}
		}
	}

	v.cache[token] = cacheEntry{info: info, expires: v.now().Add(v.ttl)}
}

// tokenIdentity maps a token to a short stable identifier that never
// contains the token value itself.
func tokenIdentity(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token-" + hex.EncodeToString(sum[:6])
}

// Invalidate removes a token from the verification cache.
func (v *UpstreamVerifier) Invalidate(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.cache, token)
}
