package duckduckgo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

const (
	liteEndpoint = "https://lite.duckduckgo.com/lite/"
	htmlEndpoint = "https://html.duckduckgo.com/html/"
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBody      = 1 << 20
)

// Search scrapes the keyless DuckDuckGo frontends. The lite page is tried first, the
// html page only when lite yields nothing.
type Search struct {
	HTTP         *httpclient.Client
	LiteEndpoint string
	HTMLEndpoint string
}

func (s Search) Name() string { return "duckduckgo" }

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	lite := s.LiteEndpoint
	if lite == "" {
		lite = liteEndpoint
	}
	out, liteErr := s.fetch(ctx, lite, q, parseLite)
	if len(out) == 0 {
		htmlURL := s.HTMLEndpoint
		if htmlURL == "" {
			htmlURL = htmlEndpoint
		}
		var err error
		out, err = s.fetch(ctx, htmlURL, q, parseHTML)
		if err != nil && liteErr != nil {
			return nil, fmt.Errorf("duckduckgo: lite: %v; html: %w", liteErr, err)
		}
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s Search) fetch(ctx context.Context, endpoint, q string, parse func(*html.Node) []models.Result) ([]models.Result, error) {
	body, err := s.HTTP.Get(ctx, endpoint+"?q="+url.QueryEscape(q), map[string]string{
		"User-Agent": userAgent,
		"Accept":     "text/html,application/xhtml+xml",
	}, maxBody)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return parse(doc), nil
}

// parseLite walks the result table: a row with a.result-link carries title and URL, the
// following td.result-snippet row carries the snippet.
func parseLite(doc *html.Node) []models.Result {
	var out []models.Result
	var title, link string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result-link"):
				title = textContent(n)
				link = cleanURL(attr(n, "href"))
				return
			case n.Data == "td" && hasClass(n, "result-snippet"):
				snippet := textContent(n)
				if snippet != "" && title != "" && link != "" {
					out = append(out, models.Result{Title: title, URL: link, Content: snippet})
				}
				title, link = "", ""
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func parseHTML(doc *html.Node) []models.Result {
	var out []models.Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result__body") {
			var r models.Result
			var extract func(*html.Node)
			extract = func(c *html.Node) {
				if c.Type == html.ElementNode {
					switch {
					case hasClass(c, "result__a"):
						r.Title = textContent(c)
						r.URL = cleanURL(attr(c, "href"))
					case hasClass(c, "result__snippet"):
						r.Content = textContent(c)
					}
				}
				for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
					extract(cc)
				}
			}
			extract(n)
			if r.Title != "" && r.URL != "" && r.Content != "" {
				out = append(out, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// cleanURL unwraps duckduckgo redirect links.
func cleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "duckduckgo.com/l/") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return raw
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
