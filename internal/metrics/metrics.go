package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	tokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homescout",
			Name:      "token_refresh_total",
			Help:      "Count of token refresh attempts by result.",
		},
		[]string{"result"},
	)

	refreshWaiters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "homescout",
			Name:      "refresh_waiters",
			Help:      "Requests currently parked behind an in-flight refresh.",
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homescout",
			Name:      "api_requests_total",
			Help:      "Count of backend API calls by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	checkoutSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "homescout",
			Name:      "checkout_sessions_total",
			Help:      "Count of checkout sessions created.",
		},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homescout",
			Name:      "cache_lookups_total",
			Help:      "Count of API cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(tokenRefresh, refreshWaiters, apiRequests, checkoutSessions, cacheHits)
	})
}

func IncTokenRefresh(result string) {
	tokenRefresh.WithLabelValues(result).Inc()
}

func SetRefreshWaiters(n int) {
	refreshWaiters.Set(float64(n))
}

func IncAPIRequest(endpoint, status string) {
	apiRequests.WithLabelValues(endpoint, status).Inc()
}

func IncCheckoutSession() {
	checkoutSessions.Inc()
}

func IncCacheLookup(outcome string) {
	cacheHits.WithLabelValues(outcome).Inc()
}
