package web_fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/tools/web_fetch/models"
)

const article = `<!doctype html><html><head><title>Gophers</title></head><body>
<nav>Home | About</nav>
<article><h1>Gophers</h1>
<p>The gopher is the mascot of the Go programming language. It was designed by Renee French and
has become a well known symbol of the community around the language.</p>
<p>Gophers appear on stickers, plush toys and conference badges all over the world, and many
variations of the original drawing exist.</p>
</article>
<footer>copyright</footer>
</body></html>`

type stubFetcher struct {
	res models.Result
	err error
}

func (s stubFetcher) Exec(context.Context, string) (models.Result, error) { return s.res, s.err }

func TestReadabilityFetcherExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(article))
	}))
	defer srv.Close()

	f, err := NewWebFetcher(config.FetchConfig{Timeout: time.Second, MaxChars: 60})
	if err != nil {
		t.Fatalf("NewWebFetcher: %v", err)
	}
	svc := NewService(f, config.FetchConfig{Timeout: time.Second, MaxChars: 60}, nil)
	text := svc.FetchText(context.Background(), srv.URL+"/gophers")
	if !strings.Contains(strings.ToLower(text), "gopher") {
		t.Fatalf("expected article text, got %q", text)
	}
	if len(text) > 60 {
		t.Fatalf("expected text truncated to 60 bytes, got %d", len(text))
	}
}

func TestFetchTextEmptyOnFailure(t *testing.T) {
	svc := NewService(stubFetcher{err: errors.New("timeout")}, config.FetchConfig{}, nil)
	if got := svc.FetchText(context.Background(), "https://example.com"); got != "" {
		t.Fatalf("expected empty string on failure, got %q", got)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	f, _ := NewWebFetcher(config.FetchConfig{})
	if got := NewService(f, config.FetchConfig{}, nil).FetchText(context.Background(), srv.URL); got != "" {
		t.Fatalf("expected empty string on 404, got %q", got)
	}
	if got := NewService(f, config.FetchConfig{}, nil).FetchText(context.Background(), "not a url"); got != "" {
		t.Fatalf("expected empty string on invalid url, got %q", got)
	}
}

func TestNewWebFetcherRejectsUnknownType(t *testing.T) {
	if _, err := NewWebFetcher(config.FetchConfig{Type: "curl"}); err == nil {
		t.Fatalf("expected unsupported fetcher error")
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := "héllo"
	if got := models.Truncate(s, 2); got != "h" {
		t.Fatalf("expected cut before split rune, got %q", got)
	}
	if got := models.Normalize("  a \n\t b  "); got != "a b" {
		t.Fatalf("unexpected normalize %q", got)
	}
}

type countingFetcher struct{ calls int }

func (c *countingFetcher) Exec(context.Context, string) (models.Result, error) {
	c.calls++
	return models.Result{Text: "body"}, nil
}

func TestFetchTextSkipsBlockedHosts(t *testing.T) {
	f := &countingFetcher{}
	cfg := config.FetchConfig{Policy: config.FetchPolicyConfig{Paywall: []string{"Paywalled.example"}}}
	svc := NewService(f, cfg, nil)
	if got := svc.FetchText(context.Background(), "https://www.paywalled.example/story"); got != "" {
		t.Fatalf("expected blocked host to yield empty text, got %q", got)
	}
	if f.calls != 0 {
		t.Fatalf("blocked host must not be fetched")
	}
	if got := svc.FetchText(context.Background(), "https://open.example/story"); got != "body" {
		t.Fatalf("expected open host to be fetched, got %q", got)
	}
}
