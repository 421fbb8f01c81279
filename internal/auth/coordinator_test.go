package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/internal/session"
	"homescout/internal/token"
)

type httpError struct {
	status int
}

func (e *httpError) Error() string   { return fmt.Sprintf("http %d", e.status) }
func (e *httpError) HTTPStatus() int { return e.status }

// stubRefresher blocks inside Refresh until released, so tests can pile
// up waiters deterministically.
type stubRefresher struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	token   string
	err     error
}

func newStubRefresher(tok string, err error) *stubRefresher {
	return &stubRefresher{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
		token:   tok,
		err:     err,
	}
}

func (r *stubRefresher) Refresh(ctx context.Context) (string, error) {
	r.calls.Add(1)
	r.entered <- struct{}{}
	<-r.release
	return r.token, r.err
}

func newTestCoordinator(t *testing.T, refresher Refresher) (*Coordinator, *session.Store, *session.Bus) {
	t.Helper()
	store := session.NewStore(t.TempDir())
	bus := session.NewBus()
	logger := zerolog.New(io.Discard)
	coord := NewCoordinator(store, token.NewCache(), refresher, bus, []string{"/auth/"}, &logger)
	return coord, store, bus
}

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestOnUnauthorized_SingleFlight(t *testing.T) {
	refresher := newStubRefresher("fresh-token", nil)
	coord, _, _ := newTestCoordinator(t, refresher)
	ctx := context.Background()

	var orderMu sync.Mutex
	var replayOrder []int
	record := func(i int) RetryFunc {
		return func(_ context.Context, newToken string) error {
			assert.Equal(t, "fresh-token", newToken)
			orderMu.Lock()
			replayOrder = append(replayOrder, i)
			orderMu.Unlock()
			return nil
		}
	}

	var wg sync.WaitGroup
	results := make([]error, 5)

	// Leader enters first and blocks inside Refresh.
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = coord.OnUnauthorized(ctx, record(0))
	}()
	<-refresher.entered

	// Four more 401s arrive while the refresh is in flight; enqueue them
	// one at a time so the arrival order is known.
	for i := 1; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = coord.OnUnauthorized(ctx, record(i))
		}()
		require.Eventually(t, func() bool { return coord.WaiterCount() == i },
			time.Second, time.Millisecond, "waiter %d not enqueued", i)
	}

	close(refresher.release)
	wg.Wait()

	assert.Equal(t, int32(1), refresher.calls.Load(), "exactly one refresh call")
	for i, err := range results {
		assert.NoError(t, err, "request %d", i)
	}
	// Waiters replay in arrival order; the triggering request goes last.
	assert.Equal(t, []int{1, 2, 3, 4, 0}, replayOrder)
	assert.Equal(t, 0, coord.WaiterCount(), "queue reset after settle")
}

func TestOnUnauthorized_RefreshUnauthorizedClearsSession(t *testing.T) {
	refreshErr := &httpError{status: http.StatusUnauthorized}
	refresher := newStubRefresher("", refreshErr)
	coord, store, bus := newTestCoordinator(t, refresher)
	ctx := context.Background()

	require.NoError(t, store.SetToken(signedToken(t, time.Hour)))

	var loggedOut atomic.Int32
	bus.Subscribe(session.EventLoggedOut, func(session.Event) { loggedOut.Add(1) })

	var wg sync.WaitGroup
	results := make([]error, 5)
	retried := atomic.Int32{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = coord.OnUnauthorized(ctx, func(context.Context, string) error {
			retried.Add(1)
			return nil
		})
	}()
	<-refresher.entered

	for i := 1; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = coord.OnUnauthorized(ctx, func(context.Context, string) error {
				retried.Add(1)
				return nil
			})
		}()
		require.Eventually(t, func() bool { return coord.WaiterCount() == i },
			time.Second, time.Millisecond)
	}

	close(refresher.release)
	wg.Wait()

	for i, err := range results {
		assert.ErrorIs(t, err, refreshErr, "request %d fails with the refresh error", i)
	}
	assert.Equal(t, int32(0), retried.Load(), "no replay after failed refresh")
	assert.Empty(t, store.Token(), "session cleared on unauthorized refresh")
	assert.Equal(t, int32(1), loggedOut.Load(), "forced logout published once")
}

func TestOnUnauthorized_TransientFailureKeepsSession(t *testing.T) {
	refreshErr := &httpError{status: http.StatusBadGateway}
	refresher := newStubRefresher("", refreshErr)
	coord, store, bus := newTestCoordinator(t, refresher)
	close(refresher.release)

	tok := signedToken(t, time.Hour)
	require.NoError(t, store.SetToken(tok))

	var loggedOut atomic.Int32
	bus.Subscribe(session.EventLoggedOut, func(session.Event) { loggedOut.Add(1) })

	err := coord.OnUnauthorized(context.Background(), func(context.Context, string) error { return nil })
	<-refresher.entered

	assert.ErrorIs(t, err, refreshErr)
	assert.Equal(t, tok, store.Token(), "session survives a transient refresh failure")
	assert.Equal(t, int32(0), loggedOut.Load())
}

func TestOnUnauthorized_StateResetAllowsNextRefresh(t *testing.T) {
	refresher := newStubRefresher("fresh-token", nil)
	close(refresher.release)
	coord, _, _ := newTestCoordinator(t, refresher)
	ctx := context.Background()

	noop := func(context.Context, string) error { return nil }
	require.NoError(t, coord.OnUnauthorized(ctx, noop))
	require.NoError(t, coord.OnUnauthorized(ctx, noop))

	assert.Equal(t, int32(2), refresher.calls.Load(), "each settled cycle permits a new refresh")
}

func TestOnUnauthorized_WaiterContextCancel(t *testing.T) {
	refresher := newStubRefresher("fresh-token", nil)
	coord, _, _ := newTestCoordinator(t, refresher)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = coord.OnUnauthorized(context.Background(), func(context.Context, string) error { return nil })
	}()
	<-refresher.entered

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		waiterErr <- coord.OnUnauthorized(ctx, func(context.Context, string) error { return nil })
	}()
	require.Eventually(t, func() bool { return coord.WaiterCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-waiterErr, context.Canceled)

	close(refresher.release)
	wg.Wait()
}

func TestAttach(t *testing.T) {
	refresher := newStubRefresher("", nil)
	coord, store, _ := newTestCoordinator(t, refresher)

	valid := signedToken(t, time.Hour)
	require.NoError(t, store.SetToken(valid))

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/properties", nil)
	coord.Attach(req)
	assert.Equal(t, "Bearer "+valid, req.Header.Get("Authorization"))
}

func TestAttach_ExcludedPath(t *testing.T) {
	refresher := newStubRefresher("", nil)
	coord, store, _ := newTestCoordinator(t, refresher)
	require.NoError(t, store.SetToken(signedToken(t, time.Hour)))

	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/auth/login", nil)
	coord.Attach(req)
	assert.Empty(t, req.Header.Get("Authorization"), "auth endpoints stay bare")
}

func TestAttach_ExpiredToken(t *testing.T) {
	refresher := newStubRefresher("", nil)
	coord, store, _ := newTestCoordinator(t, refresher)
	require.NoError(t, store.SetToken(signedToken(t, -time.Minute)))

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/properties", nil)
	coord.Attach(req)
	assert.Empty(t, req.Header.Get("Authorization"), "expired token is not attached")
}

func TestAttach_ExpiryBufferOverride(t *testing.T) {
	refresher := newStubRefresher("", nil)
	coord, store, _ := newTestCoordinator(t, refresher)
	require.NoError(t, store.SetToken(signedToken(t, 30*time.Second)))

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/properties", nil)
	coord.Attach(req)
	assert.NotEmpty(t, req.Header.Get("Authorization"), "30s of lifetime clears the default buffer")

	coord.SetExpiryBuffer(time.Minute)
	req = httptest.NewRequest(http.MethodGet, "https://api.example.com/properties", nil)
	coord.Attach(req)
	assert.Empty(t, req.Header.Get("Authorization"), "token inside the widened buffer is not attached")
}

func TestAttach_NoToken(t *testing.T) {
	refresher := newStubRefresher("", nil)
	coord, _, _ := newTestCoordinator(t, refresher)

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/properties", nil)
	coord.Attach(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&httpError{status: http.StatusUnauthorized}))
	assert.True(t, IsUnauthorized(fmt.Errorf("call backend: %w", &httpError{status: http.StatusUnauthorized})))
	assert.False(t, IsUnauthorized(&httpError{status: http.StatusBadGateway}))
	assert.False(t, IsUnauthorized(errors.New("plain failure")))
	assert.False(t, IsUnauthorized(nil))
}
