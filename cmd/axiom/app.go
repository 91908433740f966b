package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/config"
	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/internal/store"
)

// app holds the process-wide dependencies shared by serve and ask.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	tracing *telemetry.Tracing
	rdb     *redis.Client
	store   *store.Store
	orch    *core.Orchestrator
}

func buildApp(ctx context.Context, cfgPath string, withStore bool) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.General)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	a.tracing, err = telemetry.SetupTracing(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}
	tel := telemetry.NewTelemetry(nil)

	if cfg.Storage.Redis.Enabled() {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:        cfg.Storage.Redis.Addr(),
			Password:    cfg.Storage.Redis.Password,
			DB:          cfg.Storage.Redis.DB,
			DialTimeout: cfg.Storage.Redis.Timeout,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}

	// a nil *store.Store must not reach the orchestrator as a non-nil Persister
	var persister core.Persister
	if withStore && cfg.Storage.Postgres.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Postgres.Timeout)
		a.store, err = store.NewWithDSN(pingCtx, cfg.Storage.Postgres.DSN())
		cancel()
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		persister = a.store
	}

	gen, err := core.NewGenerator(ctx, cfg.LLM)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	search := core.NewSearchService(cfg.Search, a.rdb, tel, logger)
	fetch, err := core.NewPageFetcher(cfg.Fetch, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.orch, err = core.NewOrchestrator(cfg, gen, search, fetch, persister, tel, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}
