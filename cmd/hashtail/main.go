// Command hashtail prints the live update stream of a hashwatch server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/hashwatch/internal/connection"
	"github.com/rickgao/hashwatch/internal/model"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "hashwatch server host:port")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	cfg := connection.DefaultFollowConfig()
	cfg.Client.URL = u.String()

	logger.Info("following", "url", cfg.Client.URL)
	err := connection.Follow(ctx, cfg, func(up model.Update) {
		printUpdate(os.Stdout, up)
	}, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stream ended", "err", err)
		os.Exit(1)
	}
}

// printUpdate writes one line per update.
func printUpdate(w io.Writer, u model.Update) {
	last, ok := u.Series.Last()
	if u.Sample != nil {
		last, ok = *u.Sample, true
	}
	if !ok {
		fmt.Fprintf(w, "%-12s  (no samples)\n", u.State)
		return
	}
	fmt.Fprintf(w, "%-12s  %s  10m=%s  1h=%s  1d=%s  n=%d\n",
		u.State,
		time.UnixMilli(last.TimestampMs).Format(time.DateTime),
		formatHashrate(last.Hashrate10m),
		formatHashrate(last.Hashrate1h),
		formatHashrate(last.Hashrate1d),
		len(u.Series),
	)
}

// formatHashrate scales H/s to the largest fitting SI unit.
func formatHashrate(hs float64) string {
	units := []string{"H/s", "kH/s", "MH/s", "GH/s", "TH/s", "PH/s"}
	i := 0
	for hs >= 1000 && i < len(units)-1 {
		hs /= 1000
		i++
	}
	return fmt.Sprintf("%.2f %s", hs, units[i])
}
