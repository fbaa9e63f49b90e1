// Package server exposes the reconciled series over HTTP and WebSocket.
//
// Routes:
//   - GET  /health  status, controller state, buffer size, device latency
//   - GET  /series  current snapshot in the persisted envelope format
//   - GET  /latest  most recent update
//   - GET  /ws      stream of updates, latest first
//   - POST /reset   clear persisted state and backfill again
//   - GET  /metrics Prometheus metrics, when a gatherer is configured
package server
