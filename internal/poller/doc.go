// Package poller implements the live telemetry poller.
//
// The poller:
//   - Fetches the device's system info on a fixed interval (default 5s)
//   - Keeps at most one request outstanding; a tick that finds the slot
//     busy is dropped, never queued
//   - Hands each result to a handler together with a release func that
//     frees the slot, so the consumer decides when the next poll may run
//   - Supports out-of-band polls via Trigger
package poller
