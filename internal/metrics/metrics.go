// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal         *prometheus.CounterVec
	backoffSeconds             prometheus.Histogram
	playersStoredTotal         prometheus.Counter
	gamesStoredTotal           prometheus.Counter
	resolutionFailuresTotal    *prometheus.CounterVec
	frontierBatchSize          prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chess_crawler_fetch_attempts_total",
				Help: "Total number of upstream GET attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		backoffSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chess_crawler_backoff_seconds",
				Help:    "Histogram of backoff sleeps taken between fetch attempts.",
				Buckets: []float64{0.5, 1, 2, 4, 8, 16},
			},
		)

		playersStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chess_crawler_players_stored_total",
				Help: "Total number of players committed to the store.",
			},
		)

		gamesStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chess_crawler_games_stored_total",
				Help: "Total number of games committed to the store.",
			},
		)

		resolutionFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chess_crawler_resolution_failures_total",
				Help: "Total number of usernames that failed resolution, labeled by reason.",
			},
			[]string{"reason"},
		)

		frontierBatchSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chess_crawler_frontier_batch_size",
				Help: "Number of usernames selected by the most recent frontier query.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt counts one upstream GET attempt.
func ObserveFetchAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBackoff records one backoff sleep.
func ObserveBackoff(d time.Duration) {
	backoffSeconds.Observe(d.Seconds())
}

// ObservePlayerStored counts a committed player and its games.
func ObservePlayerStored(games int) {
	playersStoredTotal.Inc()
	if games > 0 {
		gamesStoredTotal.Add(float64(games))
	}
}

// ObserveResolutionFailure counts a username written to the failure log.
func ObserveResolutionFailure(reason string) {
	resolutionFailuresTotal.WithLabelValues(reason).Inc()
}

// SetFrontierBatch records the size of the latest frontier selection.
func SetFrontierBatch(n int) {
	frontierBatchSize.Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
