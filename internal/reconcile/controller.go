package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/hashwatch/internal/api"
	"github.com/rickgao/hashwatch/internal/broadcast"
	"github.com/rickgao/hashwatch/internal/derive"
	"github.com/rickgao/hashwatch/internal/metrics"
	"github.com/rickgao/hashwatch/internal/model"
	"github.com/rickgao/hashwatch/internal/normalize"
	"github.com/rickgao/hashwatch/internal/poller"
	"github.com/rickgao/hashwatch/internal/series"
)

// HistorySource serves historical samples.
type HistorySource interface {
	GetHistory(ctx context.Context, startMs int64) (*model.HistoryPayload, error)
	// GetHistoryRangeEnd may return api.ErrRangeEndUnsupported.
	GetHistoryRangeEnd(ctx context.Context) (int64, error)
}

// Device is the full device surface the controller needs.
type Device interface {
	HistorySource
	poller.LiveSource
}

// Config holds controller configuration.
type Config struct {
	PollInterval     time.Duration // Live poll interval (default: 5s)
	RetentionTick    time.Duration // Trim interval with no new data (default: 30s)
	RequestTimeout   time.Duration // Per-request timeout (default: 10s)
	MaxBackfillPages int           // Upper bound on history pages per backfill (default: 100)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:     5 * time.Second,
		RetentionTick:    30 * time.Second,
		RequestTimeout:   10 * time.Second,
		MaxBackfillPages: 100,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records reconciliation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// Events delivered to the loop.
type (
	liveEvent struct {
		info    *model.SystemInfo
		release func()
	}
	rangeEndEvent struct {
		gen int64
		end int64
		err error
	}
	pageEvent struct {
		gen     int64
		startMs int64
		payload *model.HistoryPayload
		err     error
	}
	resetEvent struct {
		done chan error
	}
)

// backfill is the loop-owned state of one backfill pass.
type backfill struct {
	startMs int64
	endMs   int64
	pages   int
	total   int
}

// Controller reconciles history and live samples into a Store.
type Controller struct {
	cfg     Config
	store   *series.Store
	history HistorySource
	hub     *broadcast.Hub
	poller  *poller.Poller
	metrics *metrics.Metrics
	logger  *slog.Logger

	events chan any
	state  atomic.Int32

	// Owned by the loop goroutine.
	gen      int64
	bf       backfill
	deferred *liveEvent
	info     *model.SystemInfo

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Controller. hub may be nil.
func New(cfg Config, store *series.Store, device Device, hub *broadcast.Hub, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.RetentionTick <= 0 {
		cfg.RetentionTick = def.RetentionTick
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MaxBackfillPages <= 0 {
		cfg.MaxBackfillPages = def.MaxBackfillPages
	}

	c := &Controller{
		cfg:     cfg,
		store:   store,
		history: device,
		hub:     hub,
		logger:  logger,
		events:  make(chan any, 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.poller = poller.New(poller.Config{
		Interval: cfg.PollInterval,
		Timeout:  cfg.RequestTimeout,
	}, device, poller.InfoHandlerFunc(c.handleInfo), logger)
	return c
}

// Start restores persisted state and begins reconciliation.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	restored := c.store.Restore(c.ctx)
	if restored.Corrupt {
		c.logger.Warn("persisted series was corrupt, starting cold")
	}

	c.wg.Add(1)
	go c.run()

	if err := c.poller.Start(c.ctx); err != nil {
		c.cancel()
		return err
	}

	c.logger.Info("reconciler started",
		"cold_start", restored.ColdStart(),
		"samples", len(restored.Series),
		"cursor", restored.Cursor,
	)
	return nil
}

// Stop shuts down the poller and the loop. Results arriving later are ignored.
func (c *Controller) Stop(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	if err := c.poller.Stop(ctx); err != nil {
		c.logger.Warn("poller stop", "err", err)
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("reconciler stopped", "samples", c.store.Len())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrNotStarted is returned by Reset before Start.
var ErrNotStarted = errors.New("reconciler not started")

// Reset clears the series and persisted state and starts a new backfill.
func (c *Controller) Reset(ctx context.Context) error {
	if c.ctx == nil {
		return ErrNotStarted
	}
	ev := resetEvent{done: make(chan error, 1)}
	select {
	case c.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	select {
	case err := <-ev.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// PollerStats returns live poll counters.
func (c *Controller) PollerStats() poller.Stats {
	return c.poller.Stats()
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.logger.Debug("reconciler state", "from", old, "to", s)
		c.metrics.SetState(s.String())
	}
}

// handleInfo runs on poller goroutines and forwards to the loop.
func (c *Controller) handleInfo(ctx context.Context, info *model.SystemInfo, release func()) {
	select {
	case c.events <- liveEvent{info: info, release: release}:
	case <-ctx.Done():
		release()
	}
}

// run is the event loop. It is the only goroutine that mutates the store.
func (c *Controller) run() {
	defer c.wg.Done()
	defer c.dropDeferred()

	ticker := time.NewTicker(c.cfg.RetentionTick)
	defer ticker.Stop()

	if c.store.Len() > 0 {
		c.publish(nil)
	}
	c.beginBackfill()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if n := c.store.Tick(c.ctx); n > 0 {
				c.logger.Debug("retention trimmed samples", "count", n)
				c.metrics.Trimmed(n)
				c.publish(nil)
			}
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev any) {
	switch ev := ev.(type) {
	case liveEvent:
		c.onLive(ev)
	case rangeEndEvent:
		if ev.gen == c.gen {
			c.onRangeEnd(ev)
		}
	case pageEvent:
		if ev.gen == c.gen {
			c.onPage(ev)
		}
	case resetEvent:
		ev.done <- c.reset()
	}
}

// beginBackfill computes the backfill range from the cursor and wall clock.
func (c *Controller) beginBackfill() {
	c.setState(StateBackfillPending)

	now := c.store.NowMs()
	start := c.store.Window().Cutoff(now)
	if cursor, ok := c.store.Cursor(); ok && cursor+1 > start {
		start = cursor + 1
	}
	c.bf = backfill{startMs: start, endMs: now}

	if start >= now {
		c.logger.Info("series up to date, skipping backfill", "start", start, "end", now)
		if n := c.store.Tick(c.ctx); n > 0 {
			c.metrics.Trimmed(n)
			c.publish(nil)
		}
		c.enterLive()
		return
	}

	gen := c.gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
		end, err := c.history.GetHistoryRangeEnd(ctx)
		cancel()
		c.send(rangeEndEvent{gen: gen, end: end, err: err})
	}()
}

func (c *Controller) onRangeEnd(ev rangeEndEvent) {
	switch {
	case errors.Is(ev.err, api.ErrRangeEndUnsupported):
	case ev.err != nil:
		c.logger.Warn("history range end unavailable", "err", ev.err)
	case ev.end > 0 && ev.end < c.bf.endMs:
		c.bf.endMs = ev.end
	}

	c.setState(StateBackfilling)
	c.logger.Info("backfill started", "start", c.bf.startMs, "end", c.bf.endMs)

	if c.bf.startMs >= c.bf.endMs {
		c.enterLive()
		return
	}
	c.fetchPage(c.bf.startMs)
}

func (c *Controller) fetchPage(startMs int64) {
	gen := c.gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
		payload, err := c.history.GetHistory(ctx, startMs)
		cancel()
		c.send(pageEvent{gen: gen, startMs: startMs, payload: payload, err: err})
	}()
}

func (c *Controller) onPage(ev pageEvent) {
	if ev.err != nil {
		c.logger.Warn("backfill request failed", "start", ev.startMs, "err", ev.err)
		c.enterLive()
		return
	}

	c.metrics.BackfillPage()
	batch, err := normalize.HistoryBatch(ev.payload)
	if err != nil {
		c.metrics.Rejected(metrics.SourceHistory)
		c.logger.Warn("discarding history page", "start", ev.startMs, "err", err)
		c.enterLive()
		return
	}
	if len(batch) == 0 {
		c.enterLive()
		return
	}

	res := c.store.Merge(c.ctx, batch)
	c.bf.pages++
	c.bf.total += res.Absorbed
	c.metrics.Absorbed(metrics.SourceHistory, res.Absorbed)
	c.metrics.Trimmed(res.Trimmed)
	if res.Absorbed > 0 || res.Trimmed > 0 {
		c.publish(nil)
	}

	last, ok := c.store.Last()
	switch {
	case res.Absorbed == 0, !ok:
		c.enterLive()
	case last.TimestampMs >= c.bf.endMs:
		c.enterLive()
	case c.bf.pages >= c.cfg.MaxBackfillPages:
		c.logger.Warn("backfill page limit reached", "pages", c.bf.pages)
		c.enterLive()
	default:
		c.fetchPage(last.TimestampMs + 1)
	}
}

// enterLive switches to live-only mode, flushing any sample held during
// backfill and asking the poller for a fresh one.
func (c *Controller) enterLive() {
	if c.State() == StateBackfilling || c.State() == StateBackfillPending {
		c.logger.Info("backfill complete", "pages", c.bf.pages, "absorbed", c.bf.total)
	}
	c.setState(StateLiveOnly)

	if d := c.deferred; d != nil {
		c.deferred = nil
		c.absorbLive(d.info)
		d.release()
	}
	c.poller.Trigger()
}

func (c *Controller) onLive(ev liveEvent) {
	if c.State() != StateLiveOnly {
		c.dropDeferred()
		c.deferred = &ev
		return
	}
	c.absorbLive(ev.info)
	ev.release()
}

func (c *Controller) absorbLive(info *model.SystemInfo) {
	sample, err := normalize.Live(info)
	if err != nil {
		c.metrics.Rejected(metrics.SourceLive)
		c.logger.Warn("discarding live sample", "err", err)
		return
	}
	c.info = info
	if c.store.Append(c.ctx, sample) {
		c.metrics.Absorbed(metrics.SourceLive, 1)
		c.publish(&sample)
	}
}

func (c *Controller) reset() error {
	c.gen++
	c.dropDeferred()
	c.setState(StateIdle)

	err := c.store.Reset(c.ctx)
	if err != nil {
		c.logger.Warn("reset persisted state", "err", err)
	}
	c.publish(nil)
	c.beginBackfill()
	return err
}

func (c *Controller) dropDeferred() {
	if c.deferred != nil {
		c.deferred.release()
		c.deferred = nil
	}
}

func (c *Controller) send(ev any) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// publish reports the current series to metrics and the hub.
func (c *Controller) publish(sample *model.Sample) {
	snap := c.store.Snapshot()
	cursor, _ := c.store.Cursor()
	c.metrics.SetSeries(len(snap), cursor)

	if c.hub == nil {
		return
	}
	u := model.Update{
		State:  c.State().String(),
		Sample: sample,
		Series: snap,
	}
	if c.info != nil {
		display := normalize.Display(c.info)
		u.Info = &display
		u.ExpectedHashRate = derive.ExpectedHashRate(c.info)
		u.PoolURL = derive.PoolURL(c.info)
	}
	c.hub.Publish(c.ctx, u)
}
