// Package model defines shared data types used across hashwatch.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch (device clock)
//   - Hashrates: float64 hashes per second once normalized
//   - Raw device payloads keep the device's own field names and units
package model
