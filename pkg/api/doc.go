// Package api implements the Gin-based HTTP server for the escalation
// engine, hosting the REST endpoints, the Prometheus exposition endpoint
// and shared middleware such as request logging and rate limiting.
package api
