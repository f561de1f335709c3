// Package observe provides the telemetry primitives used across this
// module: a structured JSON logger with secret redaction, and
// OpenTelemetry tracer/meter wiring with pluggable exporters.
//
// Components receive an Observer (or just its Logger) at construction
// and never configure telemetry themselves.
package observe
