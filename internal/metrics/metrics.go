// Package metrics provides Prometheus instrumentation for the collider service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VotesTotal counts recorded votes.
	VotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collider_votes_total",
		Help: "Total number of votes recorded",
	})

	// VoteRejections counts rejected vote submissions by reason.
	VoteRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collider_vote_rejections_total",
		Help: "Vote submissions rejected, by reason",
	}, []string{"reason"})

	// TokensCommitted tracks cumulative staked tokens per class.
	TokensCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collider_tokens_committed_total",
		Help: "Cumulative tokens committed by votes",
	}, []string{"token"})

	// RewardsEmitted tracks cumulative BARYON and PHOTON granted to votes.
	RewardsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collider_rewards_emitted_total",
		Help: "Cumulative reward tokens emitted by votes",
	}, []string{"token"})

	// DistributionsComputed counts distribution evaluations by policy.
	DistributionsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collider_distributions_computed_total",
		Help: "Distribution evaluations by policy",
	}, []string{"policy"})

	// DegenerateDistributions counts evaluations with equal stake legs.
	DegenerateDistributions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collider_degenerate_distributions_total",
		Help: "Distribution evaluations with equal ANTI and PRO stakes",
	})

	// QuoteFetchErrors counts failed market-data lookups.
	QuoteFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collider_quote_fetch_errors_total",
		Help: "Failed USD quote fetches",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collider_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collider_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collider_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern labels by chi route pattern so wallet addresses in the
// path do not blow up label cardinality.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
