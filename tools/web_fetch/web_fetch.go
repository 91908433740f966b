package web_fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/axiom/tools/web_fetch/models"
	"github.com/mohammad-safakhou/axiom/tools/web_fetch/readability"
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	ReadabilityFetcherType FetcherType = "readability"
	ChromedpFetcherType    FetcherType = "chromedp"
)

func NewWebFetcher(cfg config.FetchConfig) (WebFetcher, error) {
	cfg = cfg.Normalize()
	switch FetcherType(cfg.Type) {
	case ReadabilityFetcherType:
		return readability.Fetch{Timeout: cfg.Timeout, MaxChars: cfg.MaxChars, HTTP: httpclient.New(cfg.Timeout, 0, 0)}, nil
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: cfg.Timeout, MaxChars: cfg.MaxChars}, nil
	default:
		return nil, fmt.Errorf("unsupported fetcher type %q", cfg.Type)
	}
}

// Service adapts a WebFetcher to the page fetch contract: text or the empty string.
type Service struct {
	fetcher  WebFetcher
	timeout  time.Duration
	maxChars int
	policy   config.FetchPolicyConfig
	logger   *zap.Logger
}

func NewService(f WebFetcher, cfg config.FetchConfig, logger *zap.Logger) *Service {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: f, timeout: cfg.Timeout, maxChars: cfg.MaxChars, policy: cfg.Policy, logger: logger.Named("fetch")}
}

// FetchText returns the page's readable text truncated to fetch.max_chars, or "" on any
// failure. Hosts blocked by fetch.policy are never requested.
func (s *Service) FetchText(ctx context.Context, url string) string {
	if s.policy.Blocks(url) {
		s.logger.Debug("fetch blocked by policy", zap.String("url", url))
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.fetcher.Exec(ctx, url)
	if err != nil {
		s.logger.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return models.Truncate(res.Text, s.maxChars)
}
