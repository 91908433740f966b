package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// FetchPolicyConfig lists hosts whose pages are never fetched. A host entry also covers its
// subdomains.
type FetchPolicyConfig struct {
	Disallow []string `mapstructure:"disallow"`
	Paywall  []string `mapstructure:"paywall"`
}

// Normalize lowercases hosts, strips schemes and www., and removes duplicates.
func (c FetchPolicyConfig) Normalize() FetchPolicyConfig {
	c.Disallow = sanitizeDomainList(c.Disallow)
	c.Paywall = sanitizeDomainList(c.Paywall)
	return c
}

func (c FetchPolicyConfig) Validate() error {
	norm := c.Normalize()
	disallow := make(map[string]struct{}, len(norm.Disallow))
	for _, host := range norm.Disallow {
		disallow[host] = struct{}{}
	}
	for _, host := range norm.Paywall {
		if _, ok := disallow[host]; ok {
			return fmt.Errorf("fetch policy conflict: host %q marked disallow and paywall", host)
		}
	}
	return nil
}

// Blocks reports whether rawURL points at a disallowed or paywalled host.
func (c FetchPolicyConfig) Blocks(rawURL string) bool {
	host := normalizeHost(rawURL)
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return false
	}
	for _, list := range [][]string{c.Disallow, c.Paywall} {
		for _, blocked := range list {
			if host == blocked || strings.HasSuffix(host, "."+blocked) {
				return true
			}
		}
	}
	return false
}

func sanitizeDomainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		host := normalizeHost(raw)
		if host == "" {
			continue
		}
		seen[host] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func normalizeHost(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if u, err := url.Parse(value); err == nil && u.Host != "" {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return strings.TrimPrefix(value, "www.")
}
