// Package api is the HTTP client for the marketplace backend. It owns
// the wire formats, the read-through cache for catalog lookups, and the
// retry-once-after-refresh behavior on expired credentials.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"homescout/internal/auth"
	"homescout/internal/metrics"
	"homescout/internal/session"
)

// AuthEndpoints are the path fragments the refresh coordinator must leave
// alone: decorating or retrying them would recurse.
var AuthEndpoints = []string{"/api/v1/auth/"}

// Error is a non-2xx backend response.
type Error struct {
	Status   int
	Endpoint string
	Body     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: http %d", e.Endpoint, e.Status)
}

// HTTPStatus implements auth.StatusError.
func (e *Error) HTTPStatus() int { return e.Status }

// Client calls the marketplace REST API. The embedded cookie jar carries
// the HTTP-only refresh cookie the auth endpoints set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	bus        *session.Bus
	coord      *auth.Coordinator
	limiter    *rate.Limiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration, store *session.Store, bus *session.Bus, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		store:      store,
		bus:        bus,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		logger:     logger,
	}
}

// SetCoordinator wires the refresh coordinator. Done after construction
// because the coordinator's refresher is this client.
func (c *Client) SetCoordinator(coord *auth.Coordinator) {
	c.coord = coord
}

// SetRateLimit overrides the client-side request rate limit.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doPost(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

// call performs one API call with the client-side rate limit, bearer
// decoration, and a single refresh-and-replay on 401. Auth endpoints are
// excluded from both decoration and retry; their original error always
// reaches the caller untouched.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	err := c.attempt(ctx, method, path, payload, out, "")
	if err == nil || c.coord == nil || c.coord.Excluded(path) {
		return err
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	// One shared refresh, then replay with the new token. If the refresh
	// itself fails, that failure is what the caller sees: it carries the
	// status needed to distinguish a dead session from a flaky backend.
	return c.coord.OnUnauthorized(ctx, func(ctx context.Context, newToken string) error {
		return c.attempt(ctx, method, path, payload, out, newToken)
	})
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any, overrideToken string) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if overrideToken != "" {
		req.Header.Set("Authorization", "Bearer "+overrideToken)
	} else if c.coord != nil {
		c.coord.Attach(req)
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	metrics.IncAPIRequest(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{Status: resp.StatusCode, Endpoint: endpoint, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		metrics.IncCacheLookup("miss")
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		metrics.IncCacheLookup("miss")
		return false
	}
	metrics.IncCacheLookup("hit")
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) dropCache(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, keys...).Err()
}
