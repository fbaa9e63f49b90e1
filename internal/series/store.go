package series

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/hashwatch/internal/model"
	"github.com/rickgao/hashwatch/internal/storage"
)

// MergeResult summarizes one Merge call.
type MergeResult struct {
	Absorbed int   // samples appended
	Skipped  int   // samples not newer than the buffer's last timestamp
	Trimmed  int   // samples removed by retention afterwards
	Cursor   int64 // cursor after the merge (0 when none)
}

// RestoreResult describes what Restore found.
type RestoreResult struct {
	// Populated is true when a readable snapshot or cursor was loaded.
	Populated bool
	// Corrupt is true when a snapshot existed but failed validation; the
	// store then starts cold.
	Corrupt   bool
	Series    model.Series
	Cursor    int64
	HasCursor bool
	Trimmed   int
}

// ColdStart reports whether the store starts with no usable prior state.
func (r RestoreResult) ColdStart() bool {
	return !r.Populated
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the wall clock used for retention.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the in-memory ordered buffer with durable snapshot and cursor.
type Store struct {
	mu     sync.RWMutex
	window Window
	kv     storage.KV
	cursor *storage.Cursor
	now    func() time.Time
	logger *slog.Logger

	series    model.Series
	cursorTs  int64
	hasCursor bool

	// Persistence failures since start; memory stays authoritative.
	writeErrors int64
}

// NewStore creates an empty store persisting to kv.
func NewStore(kv storage.KV, window Window, opts ...StoreOption) *Store {
	s := &Store{
		window: window,
		kv:     kv,
		cursor: storage.NewCursor(kv),
		now:    time.Now,
		logger: slog.Default(),
		series: model.Series{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Window returns the retention policy.
func (s *Store) Window() Window {
	return s.window
}

// NowMs returns the store's wall clock in milliseconds.
func (s *Store) NowMs() int64 {
	return s.now().UnixMilli()
}

// Restore loads the persisted snapshot and cursor and applies retention
// before anything else can touch the buffer.
func (s *Store) Restore(ctx context.Context) RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = model.Series{}
	s.cursorTs, s.hasCursor = 0, false

	var res RestoreResult

	data, err := s.kv.Get(ctx, storage.KeySeriesSnapshot)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.logger.Warn("read series snapshot failed, starting cold", "err", err)
		return res
	default:
		restored, derr := Decode(data)
		if derr != nil {
			s.logger.Warn("discarding unreadable series snapshot", "err", derr)
			res.Corrupt = true
			return res
		}
		s.series = restored
		res.Populated = true
	}

	ts, ok, err := s.cursor.Load(ctx)
	if err != nil {
		s.logger.Warn("read cursor failed", "err", err)
	}
	if ok {
		s.cursorTs, s.hasCursor = ts, true
		res.Populated = true
	}

	// A crash between the snapshot and cursor writes leaves the cursor behind.
	if last, ok := s.series.Last(); ok && (!s.hasCursor || s.cursorTs < last.TimestampMs) {
		s.cursorTs, s.hasCursor = last.TimestampMs, true
		s.storeCursorLocked(ctx)
	}

	res.Trimmed = s.trimLocked()
	if res.Trimmed > 0 {
		s.persistLocked(ctx)
	}

	res.Series = s.series.Clone()
	res.Cursor, res.HasCursor = s.cursorTs, s.hasCursor

	s.logger.Info("series restored",
		"populated", res.Populated,
		"samples", len(s.series),
		"cursor", s.cursorTs,
		"trimmed", res.Trimmed,
	)
	return res
}

// Append adds one sample if it is strictly newer than the last one.
// Returns false for duplicates and regressions.
func (s *Store) Append(ctx context.Context, sample model.Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.series.Last(); ok && sample.TimestampMs <= last.TimestampMs {
		return false
	}

	s.series = append(s.series, sample)
	s.trimLocked()
	s.persistLocked(ctx)
	s.advanceCursorLocked(ctx, sample.TimestampMs)
	return true
}

// Merge appends the samples of a batch that are strictly newer than the
// running last timestamp. The batch is expected in ascending order.
func (s *Store) Merge(ctx context.Context, batch []model.Sample) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res MergeResult
	var maxAbsorbed int64

	for _, sample := range batch {
		if last, ok := s.series.Last(); ok && sample.TimestampMs <= last.TimestampMs {
			res.Skipped++
			continue
		}
		s.series = append(s.series, sample)
		maxAbsorbed = sample.TimestampMs
		res.Absorbed++
	}

	res.Trimmed = s.trimLocked()
	if res.Absorbed > 0 || res.Trimmed > 0 {
		s.persistLocked(ctx)
	}
	if res.Absorbed > 0 {
		s.advanceCursorLocked(ctx, maxAbsorbed)
	}
	res.Cursor = s.cursorTs
	return res
}

// Tick applies retention with no new data. Returns the number of samples
// dropped; the snapshot is persisted only when something changed.
func (s *Store) Tick(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.trimLocked()
	if n > 0 {
		s.persistLocked(ctx)
	}
	return n
}

// Reset clears the buffer and both persisted keys.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = model.Series{}
	s.cursorTs, s.hasCursor = 0, false

	if err := s.kv.Delete(ctx, storage.KeySeriesSnapshot); err != nil {
		return err
	}
	return s.cursor.Clear(ctx)
}

// Snapshot returns a copy of the buffer.
func (s *Store) Snapshot() model.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series.Clone()
}

// Last returns the newest buffered sample.
func (s *Store) Last() (model.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series.Last()
}

// Cursor returns the in-memory view of the persisted cursor.
func (s *Store) Cursor() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursorTs, s.hasCursor
}

// Len returns the number of buffered samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}

// WriteErrors returns the number of swallowed persistence failures.
func (s *Store) WriteErrors() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeErrors
}

// trimLocked applies retention and returns how many samples were dropped.
func (s *Store) trimLocked() int {
	before := len(s.series)
	s.series = s.window.Trim(s.series, s.NowMs())
	return before - len(s.series)
}

// persistLocked writes the snapshot. Failures are logged and swallowed.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := Encode(s.series)
	if err != nil {
		s.writeErrors++
		s.logger.Error("encode series snapshot", "err", err)
		return
	}
	if err := s.kv.Set(ctx, storage.KeySeriesSnapshot, data); err != nil {
		s.writeErrors++
		s.logger.Warn("persist series snapshot failed", "err", err, "samples", len(s.series))
	}
}

// advanceCursorLocked moves the cursor forward to ts. A value at or below
// the current cursor is ignored so the stored cursor never regresses.
func (s *Store) advanceCursorLocked(ctx context.Context, ts int64) {
	if s.hasCursor && ts <= s.cursorTs {
		return
	}
	s.cursorTs, s.hasCursor = ts, true
	s.storeCursorLocked(ctx)
}

func (s *Store) storeCursorLocked(ctx context.Context) {
	if err := s.cursor.Store(ctx, s.cursorTs); err != nil {
		s.writeErrors++
		s.logger.Warn("persist cursor failed", "err", err, "cursor", s.cursorTs)
	}
}
