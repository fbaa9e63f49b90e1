// Package reconcile merges the device's historical and live telemetry into
// one gap-free series.
//
// On start the controller restores the persisted series and cursor, backfills
// the interval between the cursor and now page by page, then switches to
// live-only polling. A single event loop owns every store mutation; fetches
// run on their own goroutines and report back over a channel.
package reconcile
