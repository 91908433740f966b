package serper

import (
	"context"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

const defaultEndpoint = "https://google.serper.dev"

// Search queries serper.dev for organic results and images.
type Search struct {
	ApiKey   string
	Endpoint string
	HTTP     *httpclient.Client
}

func (s Search) endpoint() string {
	if s.Endpoint != "" {
		return strings.TrimRight(s.Endpoint, "/")
	}
	return defaultEndpoint
}

func (s Search) headers() map[string]string {
	return map[string]string{"X-API-KEY": s.ApiKey}
}

func (s Search) Name() string { return "serper" }

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	payload := map[string]any{"q": q}
	if k > 0 {
		payload["num"] = k
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodPost, s.endpoint()+"/search", s.headers(), payload, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0, len(raw.Organic))
	for i, r := range raw.Organic {
		if k > 0 && i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.Link, Content: r.Snippet})
	}
	return out, nil
}

func (s Search) Images(ctx context.Context, q string, k int) ([]string, error) {
	var raw struct {
		Images []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"images"`
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodPost, s.endpoint()+"/images", s.headers(), map[string]any{"q": q}, &raw); err != nil {
		return nil, err
	}
	var out []string
	for _, img := range raw.Images {
		if img.ImageURL == "" {
			continue
		}
		out = append(out, img.ImageURL)
		if k > 0 && len(out) >= k {
			break
		}
	}
	return out, nil
}
