package bing

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/mohammad-safakhou/axiom/internal/httpclient"
)

const (
	defaultEndpoint = "https://www.bing.com/images/search"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var murlRe = regexp.MustCompile(`"murl":"([^"]+)"`)

// Images scrapes the Bing image results page. It needs no key and serves as the image
// fallback when no API provider returned images.
type Images struct {
	HTTP     *httpclient.Client
	Endpoint string
}

func (b Images) Name() string { return "bing" }

func (b Images) Images(ctx context.Context, q string, k int) ([]string, error) {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	body, err := b.HTTP.Get(ctx, endpoint+"?first=1&q="+url.QueryEscape(q), map[string]string{
		"User-Agent": userAgent,
		"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	}, 2<<20)
	if err != nil {
		return nil, err
	}
	return extract(string(body), k), nil
}

// extract prefers the full-size metadata urls and falls back to thumbnail img tags.
func extract(page string, k int) []string {
	var out []string
	for _, m := range murlRe.FindAllStringSubmatch(html.UnescapeString(page), -1) {
		out = append(out, m[1])
		if k > 0 && len(out) >= k {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if k > 0 && len(out) >= k {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" && hasClass(n, "mimg") {
			src := attr(n, "src")
			if src == "" {
				src = attr(n, "data-src")
			}
			if strings.HasPrefix(src, "http") {
				out = append(out, src)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
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
