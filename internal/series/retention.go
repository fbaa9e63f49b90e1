package series

import (
	"time"

	"github.com/rickgao/hashwatch/internal/model"
)

// DefaultRetention is the span of data kept in the buffer.
const DefaultRetention = time.Hour

// Window trims samples older than Retention relative to a wall clock or the
// newest sample, whichever is later.
type Window struct {
	Retention time.Duration
}

// NewWindow returns a Window, falling back to DefaultRetention for d <= 0.
func NewWindow(d time.Duration) Window {
	if d <= 0 {
		d = DefaultRetention
	}
	return Window{Retention: d}
}

// RetentionMs returns the retention in milliseconds.
func (w Window) RetentionMs() int64 {
	return w.Retention.Milliseconds()
}

// Cutoff returns the oldest timestamp that survives at nowMs.
func (w Window) Cutoff(nowMs int64) int64 {
	return nowMs - w.RetentionMs()
}

// Trim drops samples from the front while they are older than the cutoff.
// The cutoff follows the newest sample when the device clock runs ahead of
// nowMs, so the series never spans more than Retention.
// The input is not modified. Trimming a trimmed series returns it unchanged.
func (w Window) Trim(s model.Series, nowMs int64) model.Series {
	ref := nowMs
	if last, ok := s.Last(); ok && last.TimestampMs > ref {
		ref = last.TimestampMs
	}
	cutoff := w.Cutoff(ref)
	keepFrom := 0
	for keepFrom < len(s) && s[keepFrom].TimestampMs < cutoff {
		keepFrom++
	}
	if keepFrom == 0 {
		return s
	}
	return append(model.Series(nil), s[keepFrom:]...)
}
