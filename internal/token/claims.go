// Package token decodes bearer token claims on the client side. The
// backend owns the signing secret, so tokens are parsed without signature
// verification; only the embedded claims are of interest here.
package token

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims are the fields the client reads out of a bearer token.
type Claims struct {
	SubjectID string
	Name      string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Decode parses the token without verifying its signature and extracts
// the claims. Returns an error for malformed tokens or a missing expiry.
func Decode(tokenString string) (*Claims, error) {
	parser := jwt.Parser{}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("decode token: missing exp claim")
	}

	c := &Claims{ExpiresAt: time.Unix(int64(exp), 0)}
	if sub, ok := claims["sub"].(string); ok {
		c.SubjectID = sub
	}
	if name, ok := claims["name"].(string); ok {
		c.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		c.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		c.Role = role
	}
	return c, nil
}

// Cache memoizes the decoded claims of the most recent token. Every new
// token string invalidates the previous entry, so a stored-token swap is
// picked up immediately. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	token  string
	claims *Claims
	err    error

	// now is swappable in tests.
	now func() time.Time
}

// NewCache constructs an empty claims cache.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Claims returns the decoded claims for tokenString, decoding at most
// once per distinct token value.
func (c *Cache) Claims(tokenString string) (*Claims, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tokenString != c.token {
		c.claims, c.err = Decode(tokenString)
		c.token = tokenString
	}
	return c.claims, c.err
}

// Expired reports whether the token expires within buffer from now.
// Malformed tokens and tokens without expiry count as expired, so the
// pipeline degrades to "no valid credential" instead of failing.
func (c *Cache) Expired(tokenString string, buffer time.Duration) bool {
	claims, err := c.Claims(tokenString)
	if err != nil {
		return true
	}
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()
	return !claims.ExpiresAt.Add(-buffer).After(now)
}

// Remaining returns the time until the token expires. Negative for
// already-expired tokens, an error for undecodable ones.
func (c *Cache) Remaining(tokenString string) (time.Duration, error) {
	claims, err := c.Claims(tokenString)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()
	return claims.ExpiresAt.Sub(now), nil
}

// Invalidate drops the cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.claims = nil
	c.err = nil
}

// SetNow overrides the clock. Test hook.
func (c *Cache) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
