// Package api hosts the read-only operator HTTP server. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes; readyz pings the store.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/stats for player, game, frontier and failure-log counts.
//   - GET /v1/frontier?limit=N for a sample of the current frontier.
//   - GET /v1/events for the most recent player.stored events.
package api
