package config

import "testing"

func TestFetchPolicyNormalize(t *testing.T) {
	cfg := FetchPolicyConfig{
		Disallow: []string{"www.Example.com", "https://bad.com/path", "bad.com", " "},
		Paywall:  []string{"Paywall.com", "PAYWALL.COM"},
	}
	norm := cfg.Normalize()
	if len(norm.Disallow) != 2 || norm.Disallow[0] != "bad.com" || norm.Disallow[1] != "example.com" {
		t.Fatalf("unexpected disallow list: %#v", norm.Disallow)
	}
	if len(norm.Paywall) != 1 || norm.Paywall[0] != "paywall.com" {
		t.Fatalf("unexpected paywall list: %#v", norm.Paywall)
	}
}

func TestFetchPolicyValidate(t *testing.T) {
	if err := (FetchPolicyConfig{Disallow: []string{"a.com"}, Paywall: []string{"b.com"}}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (FetchPolicyConfig{Disallow: []string{"paywall.com"}, Paywall: []string{"www.paywall.com"}}).Validate(); err == nil {
		t.Fatalf("expected paywall/disallow conflict error")
	}
}

func TestFetchPolicyBlocks(t *testing.T) {
	p := FetchPolicyConfig{Disallow: []string{"bad.com"}, Paywall: []string{"news.example"}}.Normalize()
	cases := map[string]bool{
		"https://bad.com/a":            true,
		"https://www.bad.com":          true,
		"https://cdn.bad.com/x":        true,
		"https://notbad.com":           false,
		"http://news.example:8080/pay": true,
		"https://example.org":          false,
		"":                             false,
	}
	for raw, want := range cases {
		if got := p.Blocks(raw); got != want {
			t.Fatalf("Blocks(%q) = %v, want %v", raw, got, want)
		}
	}
}
