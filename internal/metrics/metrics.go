package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/hashwatch/internal/poller"
)

const namespace = "hashwatch"

// Sample sources.
const (
	SourceHistory = "history"
	SourceLive    = "live"
)

// Metrics holds the reconciler's collectors.
type Metrics struct {
	reg prometheus.Registerer

	absorbed *prometheus.CounterVec
	rejected *prometheus.CounterVec
	trimmed  prometheus.Counter
	pages    prometheus.Counter
	length   prometheus.Gauge
	cursor   prometheus.Gauge
	state    *prometheus.GaugeVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		absorbed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_absorbed_total",
			Help:      "Samples appended to the series, by source.",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_rejected_total",
			Help:      "Device payloads discarded as invalid, by source.",
		}, []string{"source"}),
		trimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_trimmed_total",
			Help:      "Samples dropped by the retention window.",
		}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_pages_total",
			Help:      "History pages fetched during backfill.",
		}),
		length: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_samples",
			Help:      "Samples currently buffered.",
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_timestamp_ms",
			Help:      "Timestamp of the newest absorbed sample.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciler_state",
			Help:      "1 for the reconciler's current state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.absorbed, m.rejected, m.trimmed, m.pages, m.length, m.cursor, m.state)
	return m
}

// Absorbed counts samples appended from source.
func (m *Metrics) Absorbed(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.absorbed.WithLabelValues(source).Add(float64(n))
}

// Rejected counts an invalid payload from source.
func (m *Metrics) Rejected(source string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(source).Inc()
}

// Trimmed counts samples dropped by retention.
func (m *Metrics) Trimmed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.trimmed.Add(float64(n))
}

// BackfillPage counts one fetched history page.
func (m *Metrics) BackfillPage() {
	if m == nil {
		return
	}
	m.pages.Inc()
}

// SetSeries records the buffer length and cursor.
func (m *Metrics) SetSeries(length int, cursor int64) {
	if m == nil {
		return
	}
	m.length.Set(float64(length))
	m.cursor.Set(float64(cursor))
}

// SetState marks state as the current one.
func (m *Metrics) SetState(state string) {
	if m == nil {
		return
	}
	m.state.Reset()
	m.state.WithLabelValues(state).Set(1)
}

// Sources are read at scrape time.
type Sources struct {
	PollerStats func() poller.Stats
	WriteErrors func() int64
	Subscribers func() int
}

// Observe registers scrape-time collectors for src. Nil funcs are skipped.
func (m *Metrics) Observe(src Sources) {
	if m == nil {
		return
	}
	if f := src.PollerStats; f != nil {
		m.reg.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "live_polls_total",
				Help:      "Live info requests issued.",
			}, func() float64 { return float64(f().Polls) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "live_polls_dropped_total",
				Help:      "Poll ticks skipped because a request was outstanding.",
			}, func() float64 { return float64(f().Dropped) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "live_poll_errors_total",
				Help:      "Failed live info requests.",
			}, func() float64 { return float64(f().Errors) }),
		)
	}
	if f := src.WriteErrors; f != nil {
		m.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Snapshot or cursor writes that failed.",
		}, func() float64 { return float64(f()) }))
	}
	if f := src.Subscribers; f != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Connected update stream subscribers.",
		}, func() float64 { return float64(f()) }))
	}
}
