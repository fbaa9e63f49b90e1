package connection

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/hashwatch/internal/model"
)

// Follow streams updates to handle until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops. It returns ctx.Err().
func Follow(ctx context.Context, cfg FollowConfig, handle func(model.Update), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultFollowConfig()
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = def.ReconnectMaxWait
	}

	wait := cfg.ReconnectBaseWait
	for {
		c := NewClient(cfg.Client, logger)
		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("connect failed", "url", cfg.Client.URL, "err", err, "retry_in", wait)
		} else {
			wait = cfg.ReconnectBaseWait
			err := consume(ctx, c, handle)
			c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("stream interrupted", "err", err, "retry_in", wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		// Exponential backoff
		wait *= 2
		if wait > cfg.ReconnectMaxWait {
			wait = cfg.ReconnectMaxWait
		}
	}
}

// consume delivers updates until the connection fails or ctx ends.
func consume(ctx context.Context, c Client, handle func(model.Update)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-c.Errors():
			return err
		case u := <-c.Updates():
			handle(u)
		}
	}
}
