package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rickgao/hashwatch/internal/model"
)

// LiveSource provides the current telemetry sample.
type LiveSource interface {
	GetInfo(ctx context.Context) (*model.SystemInfo, error)
}

// InfoHandler receives fetched samples. The poller's request slot stays
// occupied until release is called; release is safe to call more than once.
type InfoHandler interface {
	HandleInfo(ctx context.Context, info *model.SystemInfo, release func())
}

// InfoHandlerFunc is a function adapter for InfoHandler.
type InfoHandlerFunc func(ctx context.Context, info *model.SystemInfo, release func())

func (f InfoHandlerFunc) HandleInfo(ctx context.Context, info *model.SystemInfo, release func()) {
	f(ctx, info, release)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 5s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Stats counts poll outcomes since start.
type Stats struct {
	Polls   int64 // requests issued
	Dropped int64 // ticks skipped because a request was outstanding
	Errors  int64 // failed requests
}

// Poller periodically fetches live samples.
type Poller struct {
	cfg     Config
	source  LiveSource
	handler InfoHandler
	logger  *slog.Logger

	slot    *semaphore.Weighted
	trigger chan struct{}

	polls   atomic.Int64
	dropped atomic.Int64
	errors  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, source LiveSource, handler InfoHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		logger:  logger,
		slot:    semaphore.NewWeighted(1),
		trigger: make(chan struct{}, 1),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("live poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("live poller stopped", "polls", p.polls.Load(), "dropped", p.dropped.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger requests an immediate poll. It is subject to the same single
// outstanding request rule as a tick.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stats returns poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:   p.polls.Load(),
		Dropped: p.dropped.Load(),
		Errors:  p.errors.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		case <-p.trigger:
			p.poll()
		}
	}
}

// poll issues one request if the slot is free.
func (p *Poller) poll() {
	if !p.slot.TryAcquire(1) {
		p.dropped.Add(1)
		p.logger.Debug("poll skipped, request outstanding")
		return
	}

	var once sync.Once
	release := func() {
		once.Do(func() { p.slot.Release(1) })
	}

	p.polls.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.fetch(release)
	}()
}

// fetch performs the request and passes ownership of the slot to the handler.
func (p *Poller) fetch(release func()) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	info, err := p.source.GetInfo(ctx)
	cancel()

	if err != nil {
		release()
		if p.ctx.Err() != nil {
			return
		}
		p.errors.Add(1)
		p.logger.Warn("live poll failed", "err", err)
		return
	}

	if p.handler == nil || p.ctx.Err() != nil {
		release()
		return
	}
	p.handler.HandleInfo(p.ctx, info, release)
}
