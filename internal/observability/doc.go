// Package observability groups the logging, metrics and tracing support
// shared by the API server, the worker and the operator CLI.
//
// Subpackages:
//   - logging: slog JSON loggers with request and trace ids
//   - metrics: Prometheus business and HTTP metrics
//   - tracing: OpenTelemetry spans and HTTP middleware
package observability
