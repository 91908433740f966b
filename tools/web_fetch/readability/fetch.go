package readability

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/tools/web_fetch/models"
)

const userAgent = "Mozilla/5.0 (compatible; AxiomResearch/1.0)"

// Fetch downloads a page over plain HTTP and extracts the article text.
type Fetch struct {
	Timeout  time.Duration
	MaxChars int
	HTTP     *httpclient.Client
}

func (f Fetch) Exec(ctx context.Context, raw string) (models.Result, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.Result{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	body, err := f.HTTP.Get(ctx, u.String(), map[string]string{
		"User-Agent": userAgent,
		"Accept":     "text/html,application/xhtml+xml",
	}, 4<<20)
	if err != nil {
		var se *httpclient.StatusError
		status := 599
		if errors.As(err, &se) {
			status = se.Code
		}
		return models.Result{URL: raw, Status: status, RenderMS: int(time.Since(t0) / time.Millisecond)}, err
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), u)
	if err != nil {
		return models.Result{URL: raw, Status: http.StatusOK, RenderMS: int(time.Since(t0) / time.Millisecond)}, err
	}
	return models.Result{
		URL:      raw,
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		Text:     models.Truncate(models.Normalize(article.TextContent), f.MaxChars),
		TopImage: article.Image,
		Status:   http.StatusOK,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}
