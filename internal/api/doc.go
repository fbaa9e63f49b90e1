// Package api provides the REST client for the mining device's HTTP API.
//
// Endpoints:
//   - GET /api/system/info                        live telemetry sample
//   - GET /api/history?start_timestamp=<ms>       hashrate history batch
//   - GET /api/history/end                        newest history timestamp (newer firmware only)
//
// Payload units differ between firmware revisions; the client returns them
// untouched and leaves conversion to package normalize.
package api
