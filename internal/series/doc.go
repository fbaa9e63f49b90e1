// Package series owns the reconciled hashrate buffer.
//
// The Store is the only writer of the buffer and of the resume cursor. Every
// mutation (Append, Merge, Tick) runs retention, persists the snapshot and
// advances the cursor as one step under the store lock, so readers only see
// complete states. Callers get copies, never the live slice.
package series
