package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"homescout/internal/session"
	"homescout/internal/token"
)

// RefresherConfig holds configuration for the proactive refresh loop.
type RefresherConfig struct {
	// CheckInterval is how often the remaining token lifetime is checked.
	CheckInterval time.Duration
	// RenewThreshold is the remaining lifetime below which a refresh is
	// triggered ahead of time.
	RenewThreshold time.Duration
	// RequestTimeout bounds each background refresh call.
	RequestTimeout time.Duration
}

// DefaultRefresherConfig returns the default configuration.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		CheckInterval:  time.Minute,
		RenewThreshold: 3 * time.Minute,
		RequestTimeout: 15 * time.Second,
	}
}

// ProactiveRefresher renews the bearer token in the background while a
// session is active, so interactive requests rarely hit a 401 at all.
// It starts on login or session restore and stops on logout, including
// the forced logout a terminally failed refresh triggers.
type ProactiveRefresher struct {
	config RefresherConfig
	coord  *Coordinator
	store  *session.Store
	cache  *token.Cache
	logger *zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewProactiveRefresher creates the background refresher.
func NewProactiveRefresher(config RefresherConfig, coord *Coordinator, store *session.Store, cache *token.Cache, logger *zerolog.Logger) *ProactiveRefresher {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.RenewThreshold <= 0 {
		config.RenewThreshold = 3 * time.Minute
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 15 * time.Second
	}
	return &ProactiveRefresher{
		config: config,
		coord:  coord,
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Bind subscribes the refresher to session events and returns the
// release function for both subscriptions.
func (p *ProactiveRefresher) Bind(bus *session.Bus) func() {
	offLogin := bus.Subscribe(session.EventLoggedIn, func(session.Event) { p.Start() })
	// Stop asynchronously: the logout event may be published from inside
	// the refresh loop itself, and Stop waits for that loop to exit.
	offLogout := bus.Subscribe(session.EventLoggedOut, func(session.Event) { go p.Stop() })
	return func() {
		offLogin()
		offLogout()
	}
}

// Start begins the check loop. Idempotent.
func (p *ProactiveRefresher) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop(stopCh)

	p.logger.Info().
		Dur("check_interval", p.config.CheckInterval).
		Dur("renew_threshold", p.config.RenewThreshold).
		Msg("proactive token refresh started")
}

// Stop halts the loop and waits for it to exit. Idempotent.
func (p *ProactiveRefresher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("proactive token refresh stopped")
}

// IsRunning reports whether the loop is active.
func (p *ProactiveRefresher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ProactiveRefresher) loop(stopCh chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.checkOnce()
		}
	}
}

// CheckNow triggers an immediate lifetime check (useful for testing).
func (p *ProactiveRefresher) CheckNow() {
	p.checkOnce()
}

func (p *ProactiveRefresher) checkOnce() {
	tok := p.store.Token()
	if tok == "" {
		return
	}

	remaining, err := p.cache.Remaining(tok)
	if err != nil {
		// Undecodable token: treat as expired and refresh immediately.
		remaining = 0
	}
	if remaining > p.config.RenewThreshold {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.RequestTimeout)
	defer cancel()

	if err := p.coord.RefreshNow(ctx); err != nil {
		p.logger.Error().Err(err).Msg("proactive refresh failed")
		if IsUnauthorized(err) {
			// Coordinator already cleared the session; the logout event
			// will stop this loop.
			return
		}
		return
	}
	p.logger.Debug().Dur("remaining", remaining).Msg("token renewed ahead of expiry")
}
