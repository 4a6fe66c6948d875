package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthDecisionsTotal counts authentication decisions by attempt kind and outcome
	AuthDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_auth_decisions_total",
			Help: "Number of authentication decisions, by attempt kind and outcome.",
		},
		[]string{"kind", "outcome"})

	// StepUpVerificationsTotal counts one-time-code checks by factor and result
	StepUpVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_stepup_verifications_total",
			Help: "Number of one-time-code verifications, by factor and result.",
		},
		[]string{"factor", "result"})

	// FederatedVerificationsTotal counts federated request signature checks by result
	FederatedVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_federated_verifications_total",
			Help: "Number of federated request signature verifications, by result.",
		},
		[]string{"result"})

	// LoginCounterUpdatesTotal counts login-counter increments by result
	LoginCounterUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_login_counter_updates_total",
			Help: "Number of login counter updates, by result.",
		},
		[]string{"result"})

	// LoginCounterUpdateSeconds observes how long the counter store takes
	LoginCounterUpdateSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_login_counter_update_seconds",
			Help:    "Duration of login counter store updates.",
			Buckets: prometheus.DefBuckets,
		})

	// HTTPRequestsTotal counts HTTP requests by route pattern and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_http_requests_total",
			Help: "Number of HTTP requests, by route and status code.",
		},
		[]string{"method", "route", "status"})

	// HTTPRequestSeconds observes request latency by route pattern
	HTTPRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_http_request_seconds",
			Help:    "Duration of HTTP requests, by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"})

	// RateLimitedTotal counts requests rejected by the per-IP limiter
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_rate_limited_total",
			Help: "Number of requests rejected by rate limiting.",
		})

	// LoginFailuresThrottledTotal counts attempts refused because the login
	// exhausted its failure budget
	LoginFailuresThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_login_failures_throttled_total",
			Help: "Number of login attempts refused after too many failures.",
		})

	// AccountLockoutsTotal counts accounts locked after repeated failures
	AccountLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_account_lockouts_total",
			Help: "Number of accounts temporarily locked after repeated failures.",
		})
)
