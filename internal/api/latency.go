package api

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1µs to 2 minutes, 3 significant figures.
const (
	latencyMinUs  = 1
	latencyMaxUs  = 120_000_000
	latencySigFig = 3
)

// LatencyStats is a point-in-time latency summary.
type LatencyStats struct {
	Count int64         `json:"count"`
	P50   time.Duration `json:"p50"`
	P90   time.Duration `json:"p90"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// LatencyRecorder accumulates request latencies.
type LatencyRecorder struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewLatencyRecorder creates an empty recorder.
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{
		hist: hdrhistogram.New(latencyMinUs, latencyMaxUs, latencySigFig),
	}
}

// Record adds one observation. Values outside the histogram range are clamped.
func (r *LatencyRecorder) Record(d time.Duration) {
	us := d.Microseconds()
	if us < latencyMinUs {
		us = latencyMinUs
	}
	if us > latencyMaxUs {
		us = latencyMaxUs
	}
	r.mu.Lock()
	_ = r.hist.RecordValue(us)
	r.mu.Unlock()
}

// Stats returns the current summary.
func (r *LatencyRecorder) Stats() LatencyStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LatencyStats{
		Count: r.hist.TotalCount(),
		P50:   time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(r.hist.ValueAtQuantile(90)) * time.Microsecond,
		P99:   time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond,
		Max:   time.Duration(r.hist.Max()) * time.Microsecond,
	}
}
