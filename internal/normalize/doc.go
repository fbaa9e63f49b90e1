// Package normalize converts raw device payloads into canonical samples.
//
// Canonical units: millisecond timestamps and hashes per second. The history
// endpoint exists in two firmware revisions that disagree on both time unit
// and value scale; DetectRevision picks the conversion from the payload shape
// (presence of timestampBase), never from magnitudes.
package normalize
