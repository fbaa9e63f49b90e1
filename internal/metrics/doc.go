// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Samples absorbed by source and samples dropped by retention
//   - Backfill pages fetched and payloads rejected
//   - Buffer length, cursor position and reconciler state
//   - Live poll outcomes, persistence failures and stream subscribers
//
// A nil *Metrics is valid and records nothing.
package metrics
