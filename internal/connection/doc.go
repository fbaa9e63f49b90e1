// Package connection implements the WebSocket stream client for a running
// hashwatch server.
//
// The client:
//   - Dials the server's /ws endpoint and decodes each frame as an Update
//   - Answers server pings and sends its own keepalive pings
//   - Reports stale or broken connections on an error channel
//
// Follow wraps the client with reconnection and exponential backoff.
package connection
