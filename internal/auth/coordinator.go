// Package auth coordinates bearer credentials for outgoing requests:
// attaching the token, and funnelling every expired-credential retry
// through a single shared refresh call.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"homescout/internal/metrics"
	"homescout/internal/session"
	"homescout/internal/token"
)

// DefaultExpiryBuffer is subtracted from the token lifetime when deciding
// whether it is still worth attaching.
const DefaultExpiryBuffer = 10 * time.Second

// Refresher exchanges the refresh credential (an HTTP cookie held by the
// client's cookie jar) for a new bearer token and stores it. The
// coordinator never writes the token itself.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// StatusError is implemented by errors that carry an HTTP status.
type StatusError interface {
	error
	HTTPStatus() int
}

// IsUnauthorized reports whether err carries a 401 status.
func IsUnauthorized(err error) bool {
	var se StatusError
	if errors.As(err, &se) {
		return se.HTTPStatus() == http.StatusUnauthorized
	}
	return false
}

// RetryFunc replays a failed request against a fresh bearer token.
type RetryFunc func(ctx context.Context, newToken string) error

type waiter struct {
	retry RetryFunc
	done  chan error
}

// Coordinator guarantees at most one refresh call in flight per process.
// Requests that hit a 401 while a refresh is running are queued and
// replayed in arrival order once it settles; if it fails they all fail
// with the same error. Construct exactly one per application session.
type Coordinator struct {
	store     *session.Store
	cache     *token.Cache
	refresher Refresher
	bus       *session.Bus
	logger    *zerolog.Logger

	exclude []string
	buffer  time.Duration

	mu       sync.Mutex
	inFlight bool
	waiters  []waiter
}

// NewCoordinator constructs the per-session coordinator. excluded lists
// path fragments (the auth endpoints themselves) that must never be
// decorated or retried.
func NewCoordinator(store *session.Store, cache *token.Cache, refresher Refresher, bus *session.Bus, excluded []string, logger *zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		cache:     cache,
		refresher: refresher,
		bus:       bus,
		logger:    logger,
		exclude:   excluded,
		buffer:    DefaultExpiryBuffer,
	}
}

// Excluded reports whether the request path belongs to an auth endpoint.
func (c *Coordinator) Excluded(path string) bool {
	for _, e := range c.exclude {
		if strings.Contains(path, e) {
			return true
		}
	}
	return false
}

// Attach decorates req with the stored bearer token unless the target is
// excluded or the token is absent or expired. The request is modified in
// place; an unusable token simply leaves it bare.
func (c *Coordinator) Attach(req *http.Request) {
	if c.Excluded(req.URL.Path) {
		return
	}
	c.mu.Lock()
	buffer := c.buffer
	c.mu.Unlock()
	tok := c.store.Token()
	if tok == "" || c.cache.Expired(tok, buffer) {
		return
	}
	req.Header.Set("Authorization", "Bearer "+tok)
}

// OnUnauthorized handles a 401 response for a non-excluded request.
//
// The first caller becomes the leader: it runs the refresh, then replays
// every queued waiter in arrival order with the new token, then replays
// its own request. Callers arriving while the refresh is in flight park
// as waiters and block until the leader settles them. In-flight state and
// the queue are reset on every exit path.
func (c *Coordinator) OnUnauthorized(ctx context.Context, retry RetryFunc) error {
	c.mu.Lock()
	if c.inFlight {
		w := waiter{retry: retry, done: make(chan error, 1)}
		c.waiters = append(c.waiters, w)
		metrics.SetRefreshWaiters(len(c.waiters))
		c.mu.Unlock()

		select {
		case err := <-w.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.inFlight = true
	c.mu.Unlock()

	newToken, refreshErr := c.refresher.Refresh(ctx)

	// Collect and reset shared state before settling anyone, so a failed
	// replay can re-enter OnUnauthorized without deadlocking.
	c.mu.Lock()
	queued := c.waiters
	c.waiters = nil
	c.inFlight = false
	metrics.SetRefreshWaiters(0)
	c.mu.Unlock()

	if refreshErr != nil {
		metrics.IncTokenRefresh("failure")
		if IsUnauthorized(refreshErr) {
			// The refresh credential itself is dead: the session is over.
			c.logger.Warn().Err(refreshErr).Msg("refresh rejected, clearing session")
			c.cache.Invalidate()
			if err := c.store.Clear(); err != nil {
				c.logger.Error().Err(err).Msg("failed to clear session store")
			}
			c.bus.Publish(session.Event{Type: session.EventLoggedOut})
		} else {
			c.logger.Error().Err(refreshErr).Msg("token refresh failed")
		}
		for _, w := range queued {
			w.done <- refreshErr
		}
		return refreshErr
	}

	metrics.IncTokenRefresh("success")
	c.logger.Debug().Int("waiters", len(queued)).Msg("token refreshed, replaying requests")
	c.bus.Publish(session.Event{Type: session.EventTokenRefreshed})

	for _, w := range queued {
		w.done <- w.retry(ctx, newToken)
	}
	return retry(ctx, newToken)
}

// RefreshNow runs the same single-flight refresh path without a failed
// request behind it. Used by the proactive refresher.
func (c *Coordinator) RefreshNow(ctx context.Context) error {
	return c.OnUnauthorized(ctx, func(context.Context, string) error { return nil })
}

// WaiterCount returns the number of currently parked requests.
func (c *Coordinator) WaiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// SetExpiryBuffer overrides the attach-time expiry margin.
func (c *Coordinator) SetExpiryBuffer(buffer time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = buffer
}
