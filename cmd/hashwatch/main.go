package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/hashwatch/internal/api"
	"github.com/rickgao/hashwatch/internal/broadcast"
	"github.com/rickgao/hashwatch/internal/config"
	"github.com/rickgao/hashwatch/internal/metrics"
	"github.com/rickgao/hashwatch/internal/reconcile"
	"github.com/rickgao/hashwatch/internal/series"
	"github.com/rickgao/hashwatch/internal/server"
	"github.com/rickgao/hashwatch/internal/sink"
	"github.com/rickgao/hashwatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/hashwatch.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting hashwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"device", cfg.Device.URL,
		"storage", cfg.Storage.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("hashwatch exited with error", "err", err)
		os.Exit(1)
	}
	logger.Info("hashwatch stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	kv, closeKV, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeKV()

	client := api.NewClient(
		cfg.Device.URL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Device.Timeout),
		api.WithRetries(cfg.Device.MaxRetries, cfg.Device.RetryBackoff),
	)

	hub := broadcast.NewHub(logger)
	defer hub.Close()

	if cfg.Sinks.Kafka.Enabled() {
		ks := sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:    cfg.Sinks.Kafka.Brokers,
			Topic:      cfg.Sinks.Kafka.Topic,
			InstanceID: cfg.Instance.ID,
		}, logger)
		defer ks.Close()
		hub.AddSink(ks)
		logger.Info("kafka sink enabled", "brokers", cfg.Sinks.Kafka.Brokers, "topic", cfg.Sinks.Kafka.Topic)
	}

	store := series.NewStore(kv, series.NewWindow(cfg.Reconciler.Retention), series.WithLogger(logger))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(prometheus.WrapRegistererWith(prometheus.Labels{"instance_id": cfg.Instance.ID}, reg))

	controller := reconcile.New(reconcile.Config{
		PollInterval:     cfg.Reconciler.PollInterval,
		RetentionTick:    cfg.Reconciler.RetentionTick,
		RequestTimeout:   cfg.Device.Timeout,
		MaxBackfillPages: cfg.Reconciler.MaxBackfillPages,
	}, store, client, hub, logger, reconcile.WithMetrics(m))

	m.Observe(metrics.Sources{
		PollerStats: controller.PollerStats,
		WriteErrors: store.WriteErrors,
		Subscribers: hub.Subscribers,
	})

	srv := server.New(server.Config{Port: cfg.Server.Port}, server.Deps{
		Store:   store,
		Hub:     hub,
		State:   func() string { return controller.State().String() },
		Reset:   controller.Reset,
		Latency: client.LatencyStats,
		Metrics: reg,
	}, logger)

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Close subscriber streams before draining the server.
		hub.Close()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, controller.Stop(shutdownCtx))
	})

	return g.Wait()
}

// newLogger builds the process logger from config. Level was validated at load.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
