// Package tracing is a thin wrapper around OpenTelemetry so that the rest of
// the code-base can start and end spans without importing the upstream
// packages directly. Applications that do not require tracing simply never
// call Init; spans are then no-ops.
package tracing
