package gcpclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/api/idtoken"
)

// idTokenTTL is conservative relative to Google's 60-minute ID token
// lifetime (see DESIGN.md's open-question resolution), refreshing before
// expiry rather than racing it.
const idTokenTTL = 55 * time.Minute

type cachedToken struct {
	token     string
	mintedAt  time.Time
}

// IdentityTokenCache mints and caches identity tokens per audience, the Go
// replacement for the original subscriber_service's flat _cached_id_tokens
// map — now with an expiry check and per-audience single-flight refresh
// (spec.md §5, §9) instead of an unbounded cache.
type IdentityTokenCache struct {
	mu     sync.RWMutex
	tokens map[string]cachedToken

	group singleflight.Group
}

// NewIdentityTokenCache creates an empty cache.
func NewIdentityTokenCache() *IdentityTokenCache {
	return &IdentityTokenCache{tokens: make(map[string]cachedToken)}
}

// IDToken returns a cached, unexpired token for audience, minting one via
// google.golang.org/api/idtoken on cache-miss or expiry. Concurrent callers
// for the same audience collapse into a single mint RPC.
func (c *IdentityTokenCache) IDToken(ctx context.Context, audience string) (string, error) {
	if tok, ok := c.lookup(audience); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do(audience, func() (interface{}, error) {
		if tok, ok := c.lookup(audience); ok {
			return tok, nil
		}

		ts, err := idtoken.NewTokenSource(ctx, audience)
		if err != nil {
			return "", fmt.Errorf("gcpclient.IDToken newTokenSource %s: %w", audience, err)
		}
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("gcpclient.IDToken mint %s: %w", audience, err)
		}

		c.mu.Lock()
		c.tokens[audience] = cachedToken{token: tok.AccessToken, mintedAt: time.Now()}
		c.mu.Unlock()

		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *IdentityTokenCache) lookup(audience string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.tokens[audience]
	if !ok || time.Since(tok.mintedAt) > idTokenTTL {
		return "", false
	}
	return tok.token, true
}
