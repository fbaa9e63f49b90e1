package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rickgao/hashwatch/internal/config"
	"github.com/rickgao/hashwatch/internal/database"
	"github.com/rickgao/hashwatch/internal/storage"
)

// openStorage builds the configured KV backend. Keys are namespaced by
// instance id so several devices can share one backend.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.KV, func(), error) {
	prefix := "hashwatch:" + cfg.Instance.ID + ":"

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		return storage.NewMemoryKV(), func() {}, nil

	case config.BackendFile:
		dir := filepath.Join(cfg.Storage.File.Dir, cfg.Instance.ID)
		kv, err := storage.NewFileKV(dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("file storage ready", "dir", dir)
		return kv, func() {}, nil

	case config.BackendRedis:
		kv := storage.NewRedisKV(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, prefix)
		if err := kv.Ping(ctx); err != nil {
			kv.Close()
			return nil, nil, err
		}
		logger.Info("redis storage ready", "addr", cfg.Storage.Redis.Addr, "db", cfg.Storage.Redis.DB)
		return kv, func() { kv.Close() }, nil

	case config.BackendPostgres:
		pg := cfg.Storage.Postgres
		logger.Info("connecting to database", "host", pg.Host, "port", pg.Port, "database", pg.Name)
		pool, err := database.Connect(ctx, pg)
		if err != nil {
			return nil, nil, err
		}
		kv := storage.NewPostgresKV(pool, prefix)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres storage ready")
		return kv, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
