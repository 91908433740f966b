package web_search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/internal/helpers"
	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/tools/web_search/bing"
	"github.com/mohammad-safakhou/axiom/tools/web_search/brave"
	"github.com/mohammad-safakhou/axiom/tools/web_search/duckduckgo"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
	"github.com/mohammad-safakhou/axiom/tools/web_search/serper"
)

// WebSearcher returns organic results for a query.
type WebSearcher interface {
	Name() string
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

// ImageSearcher returns image URLs for a query.
type ImageSearcher interface {
	Name() string
	Images(ctx context.Context, q string, k int) ([]string, error)
}

// Cache stores whole responses keyed by mode, size and query.
type Cache interface {
	Get(ctx context.Context, key string) (models.Response, bool)
	Set(ctx context.Context, key string, resp models.Response)
}

// Observer is told about every provider call.
type Observer func(provider string, took time.Duration, err error)

type Provider string

const (
	SerperProvider     Provider = "serper"
	BraveProvider      Provider = "brave"
	DuckDuckGoProvider Provider = "duckduckgo"
)

var ErrUnsupportedProvider = fmt.Errorf("unsupported search provider")

// NewWebSearcher builds one named provider. Keyed providers without a key are rejected.
func NewWebSearcher(provider Provider, cfg config.SearchConfig, httpc *httpclient.Client) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		if cfg.SerperAPIKey == "" {
			return nil, fmt.Errorf("serper: missing api key")
		}
		return serper.Search{ApiKey: cfg.SerperAPIKey, HTTP: httpc}, nil
	case BraveProvider:
		if cfg.BraveAPIKey == "" {
			return nil, fmt.Errorf("brave: missing api key")
		}
		return brave.Search{ApiKey: cfg.BraveAPIKey, HTTP: httpc}, nil
	case DuckDuckGoProvider:
		return duckduckgo.Search{HTTP: httpc}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// Service is the retrieval collaborator. It never fails: providers are tried in order and
// a total failure yields an empty response.
type Service struct {
	searchers []WebSearcher
	images    []ImageSearcher
	cache     Cache
	observe   Observer
	maxImages int
	timeout   time.Duration
	logger    *zap.Logger
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithObserver(o Observer) Option { return func(s *Service) { s.observe = o } }

// WithSearchers replaces the configured provider chain.
func WithSearchers(ws ...WebSearcher) Option { return func(s *Service) { s.searchers = ws } }

// WithImageSearchers replaces the configured image chain.
func WithImageSearchers(is ...ImageSearcher) Option {
	return func(s *Service) { s.images = is }
}

// NewService wires the provider chain from cfg. Providers that cannot be built (for
// example a missing key) are skipped with a warning.
func NewService(cfg config.SearchConfig, logger *zap.Logger, opts ...Option) *Service {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	httpc := httpclient.New(cfg.Timeout, 1, 300*time.Millisecond)
	s := &Service{maxImages: cfg.MaxImages, timeout: cfg.Timeout, logger: logger.Named("search")}
	for _, name := range cfg.Providers {
		ws, err := NewWebSearcher(Provider(name), cfg, httpc)
		if err != nil {
			s.logger.Warn("search provider skipped", zap.String("provider", name), zap.Error(err))
			continue
		}
		s.searchers = append(s.searchers, ws)
		if is, ok := ws.(ImageSearcher); ok {
			s.images = append(s.images, is)
		}
	}
	s.images = append(s.images, bing.Images{HTTP: httpc})
	for _, o := range opts {
		o(s)
	}
	return s
}

// Decorate appends the focus mode's site filter to q.
func Decorate(q string, mode models.FocusMode) string {
	if f := mode.SiteFilter(); f != "" {
		return strings.TrimSpace(q) + " " + f
	}
	return q
}

func cacheKey(q string, max int, mode models.FocusMode) string {
	return fmt.Sprintf("%s|%d|%s", mode, max, strings.ToLower(strings.TrimSpace(q)))
}

// Search returns at most max results and at most search.max_images images. Writing mode
// performs no retrieval.
func (s *Service) Search(ctx context.Context, q string, max int, mode models.FocusMode) models.Response {
	resp := models.Response{Results: []models.Result{}, Images: []string{}}
	if mode == models.FocusWriting || strings.TrimSpace(q) == "" {
		return resp
	}
	key := cacheKey(q, max, mode)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached
		}
	}

	query := Decorate(q, mode)
	for _, ws := range s.searchers {
		results, err := s.discover(ctx, ws, query, max)
		if err != nil {
			s.logger.Warn("search provider failed", zap.String("provider", ws.Name()), zap.Error(err))
			continue
		}
		if len(results) > 0 {
			resp.Results = results
			break
		}
	}
	if max > 0 && len(resp.Results) > max {
		resp.Results = resp.Results[:max]
	}

	for _, is := range s.images {
		imgs, err := s.imageSearch(ctx, is, query)
		if err != nil {
			s.logger.Debug("image provider failed", zap.String("provider", is.Name()), zap.Error(err))
			continue
		}
		if len(imgs) > 0 {
			resp.Images = imgs
			break
		}
	}
	if len(resp.Images) > s.maxImages {
		resp.Images = resp.Images[:s.maxImages]
	}

	if s.cache != nil && len(resp.Results) > 0 {
		s.cache.Set(ctx, key, resp)
	}
	return resp
}

func (s *Service) discover(ctx context.Context, ws WebSearcher, q string, k int) ([]models.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	out, err := ws.Discover(ctx, q, k)
	if s.observe != nil {
		s.observe(ws.Name(), time.Since(start), err)
	}
	for i := range out {
		out[i].Title = helpers.PlainText(out[i].Title)
		out[i].Content = helpers.PlainText(out[i].Content)
	}
	return out, err
}

func (s *Service) imageSearch(ctx context.Context, is ImageSearcher, q string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return is.Images(ctx, q, s.maxImages)
}
