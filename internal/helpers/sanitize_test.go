package helpers

import "testing"

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		`<p>Hello <strong>world</strong><script>alert('x')</script></p>`: "Hello world",
		`The <b>Go</b> &amp; gophers`:                                     "The Go & gophers",
		"  spaced \n\t out  ":                                             "spaced out",
		`a &lt; b`:                                                        "a < b",
		"":                                                                "",
	}
	for in, want := range cases {
		if got := PlainText(in); got != want {
			t.Fatalf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}
