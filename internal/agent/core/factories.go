package core

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/provider/gemini"
	"github.com/mohammad-safakhou/axiom/provider/ollama"
	openai_provider "github.com/mohammad-safakhou/axiom/provider/openai"
	"github.com/mohammad-safakhou/axiom/tools/web_fetch"
	"github.com/mohammad-safakhou/axiom/tools/web_search"
	"github.com/mohammad-safakhou/axiom/tools/web_search/cache"
)

// NewGenerator creates the generation backend named by cfg.Provider
func NewGenerator(ctx context.Context, cfg config.LLMConfig) (provider.Generator, error) {
	cfg = cfg.Normalize()
	switch cfg.Provider {
	case "openai":
		return openai_provider.New(cfg)
	case "gemini":
		return gemini.New(ctx, cfg)
	case "ollama":
		return ollama.New(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", provider.ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewSearchService builds the retrieval chain. rdb may be nil, which disables caching.
func NewSearchService(cfg config.SearchConfig, rdb *redis.Client, tel *telemetry.Telemetry, logger *zap.Logger) *web_search.Service {
	opts := []web_search.Option{web_search.WithObserver(tel.RecordSearch)}
	if rdb != nil {
		opts = append(opts, web_search.WithCache(cache.NewRedis(rdb, cfg.CacheTTL)))
	}
	return web_search.NewService(cfg, logger, opts...)
}

// NewPageFetcher builds the page fetcher selected by cfg.Type
func NewPageFetcher(cfg config.FetchConfig, logger *zap.Logger) (*web_fetch.Service, error) {
	f, err := web_fetch.NewWebFetcher(cfg)
	if err != nil {
		return nil, err
	}
	return web_fetch.NewService(f, cfg, logger), nil
}
