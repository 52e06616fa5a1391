// Package api hosts the optional operator HTTP server that runs alongside an
// ingest. Routes:
//   - GET /healthz and /readyz for liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the current run's stage and counters.
package api
