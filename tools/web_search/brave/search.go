package brave

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

const defaultEndpoint = "https://api.search.brave.com/res/v1"

type Search struct {
	ApiKey   string
	Endpoint string
	HTTP     *httpclient.Client
}

func (s Search) Name() string { return "brave" }

func (s Search) endpoint() string {
	if s.Endpoint != "" {
		return strings.TrimRight(s.Endpoint, "/")
	}
	return defaultEndpoint
}

func (s Search) headers() map[string]string {
	return map[string]string{"Accept": "application/json", "X-Subscription-Token": s.ApiKey}
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	if k <= 0 {
		k = 10
	}
	u := fmt.Sprintf("%s/web/search?q=%s&count=%d", s.endpoint(), url.QueryEscape(q), k)
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodGet, u, s.headers(), nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Content: r.Snippet})
	}
	return out, nil
}

func (s Search) Images(ctx context.Context, q string, k int) ([]string, error) {
	if k <= 0 {
		k = 6
	}
	u := fmt.Sprintf("%s/images/search?q=%s&count=%d", s.endpoint(), url.QueryEscape(q), k)
	var raw struct {
		Results []struct {
			Properties struct {
				URL string `json:"url"`
			} `json:"properties"`
		} `json:"results"`
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodGet, u, s.headers(), nil, &raw); err != nil {
		return nil, err
	}
	var out []string
	for _, r := range raw.Results {
		if r.Properties.URL == "" {
			continue
		}
		out = append(out, r.Properties.URL)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
