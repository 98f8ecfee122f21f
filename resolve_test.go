package gemini

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		base     string
		input    string
		expected string
	}{
		{"", "example.org", "gemini://example.org"},
		{"", "example.org/page.gmi", "gemini://example.org/page.gmi"},
		{"", "  example.org:1966/x  ", "gemini://example.org:1966/x"},
		{"", "gemini://example.org/a?q#f", "gemini://example.org/a?q#f"},
		{"", "https://example.org/", "https://example.org/"},
		{"gemini://example.org/a/b", "c", "gemini://example.org/a/c"},
		{"gemini://example.org/a/b", "../c", "gemini://example.org/c"},
		{"gemini://example.org/a/b", "/root", "gemini://example.org/root"},
		{"gemini://example.org/a/b", "?query", "gemini://example.org/a/b?query"},
		{"gemini://example.org/a/b", "", "gemini://example.org/a/b"},
		{"gemini://example.org/a/b", "//other.org/x", "gemini://other.org/x"},
		{"gemini://example.org/a/b", "gemini://other.org/y", "gemini://other.org/y"},
		{"gemini://example.org/a/b", "http://web.example/", "http://web.example/"},
		{"", "gemini://bücher.example/", "gemini://xn--bcher-kva.example/"},
		{"", "bücher.example:1966", "gemini://xn--bcher-kva.example:1966"},
		{"", "gemini://[::1]:1965/", "gemini://[::1]:1965/"},
		{"", "127.0.0.1/x", "gemini://127.0.0.1/x"},
		{"", "gemini://my_host.example/", "gemini://my_host.example/"},
		{"", "My_Host.example/x", "gemini://my_host.example/x"},
		{"", "gemini://example.org/a/../b", "gemini://example.org/b"},
		{"", "example.org/a/./b/../c/", "gemini://example.org/a/c/"},
	}

	for _, tc := range tests {
		u, err := Resolve(tc.base, tc.input)
		if err != nil {
			t.Errorf("Resolve(%q, %q): unexpected error: %v", tc.base, tc.input, err)
			continue
		}
		if u.String() != tc.expected {
			t.Errorf("Resolve(%q, %q) = %s, expected %s", tc.base, tc.input, u, tc.expected)
		}
	}
}

func TestResolveSiblingPath(t *testing.T) {
	u, err := Resolve("gemini://example.org/a/b", "c")
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/a/c" || u.Host != "example.org" || u.Scheme != "gemini" {
		t.Fatalf("got %#v", u)
	}
}

func TestResolveAbsoluteIsIdempotent(t *testing.T) {
	absolute := []struct {
		input      string
		normalized string
	}{
		{"gemini://example.org/", "gemini://example.org/"},
		{"gemini://example.org/a/b.gmi?x=1", "gemini://example.org/a/b.gmi?x=1"},
		{"gemini://example.org:1966/docs/", "gemini://example.org:1966/docs/"},
		{"gemini://xn--bcher-kva.example/", "gemini://xn--bcher-kva.example/"},
		{"gemini://example.org/a/../b", "gemini://example.org/b"},
		{"gemini://example.org/a/./b#frag", "gemini://example.org/a/b#frag"},
		{"gemini://my_host.example/", "gemini://my_host.example/"},
	}
	bases := []string{"", "gemini://example.org/a/b", "gemini://other.net/", "gemini://example.org:1966/"}

	for _, abs := range absolute {
		for _, base := range bases {
			u, err := Resolve(base, abs.input)
			if err != nil {
				t.Errorf("Resolve(%q, %q): %v", base, abs.input, err)
				continue
			}
			if u.String() != abs.normalized {
				t.Errorf("Resolve(%q, %q) = %s, expected %s", base, abs.input, u, abs.normalized)
			}
			again, err := Resolve(base, u.String())
			if err != nil || again.String() != u.String() {
				t.Errorf("resolving %s again gave %v, %v", u, again, err)
			}
		}
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		base  string
		input string
		is    error
	}{
		{"", "gemini://", ErrMissingHost},
		{"", "gemini:///path", ErrMissingHost},
		{"", "gemini://example.org/" + strings.Repeat("a", URLMaxLength), ErrURLTooLong},
		{"", "foo bar", nil},
		{"", "gemini://exa mple.org/", nil},
		{"", "gemini://example.org:port/", nil},
		{"not a url", "c", nil},
		{"/relative/base", "c", nil},
		{"gemini://example.org/", "%zz", nil},
	}

	for _, tc := range tests {
		u, err := Resolve(tc.base, tc.input)
		var resolveErr *ResolutionError
		if !errors.As(err, &resolveErr) {
			t.Errorf("Resolve(%q, %q) = %v, %v; expected a ResolutionError", tc.base, tc.input, u, err)
			continue
		}
		if tc.is != nil && !errors.Is(err, tc.is) {
			t.Errorf("Resolve(%q, %q): expected %v, got %v", tc.base, tc.input, tc.is, err)
		}
	}
}

func parse(s string) *url.URL {
	p, _ := url.Parse(s)
	return p
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		host string
		url  string
	}{
		{"example.com:1965", "gemini://example.com:1965"},
		{"example.com:1965", "gemini://example.com"},
		{"example.com:1965", "gemini://example.com/test//"},
		{"example.com:123", "gemini://example.com:123"},
		{"example.com:123", "gemini://example.com:123/test//"},
		{"0.0.0.0:1965", "gemini://0.0.0.0:1965"},
		{"0.0.0.0:1965", "gemini://0.0.0.0"},
		{"0.0.0.0:1965", "gemini://0.0.0.0/test//"},
		{"0.0.0.0:123", "gemini://0.0.0.0:123"},
		{"0.0.0.0:123", "gemini://0.0.0.0:123/test//"},
		{"[::1]:1965", "gemini://[::1]:1965"},
		{"[::1]:1965", "gemini://[::1]"},
		{"[::1]:1965", "gemini://[::1]/test//"},
		{"[::1]:123", "gemini://[::1]:123"},
		{"[::1]:123", "gemini://[::1]:123/test//"},
	}

	for _, tc := range tests {
		host := hostPort(parse(tc.url))
		if tc.host != host {
			t.Errorf("Got %s but expected %s for URL %s", host, tc.host, tc.url)
		}
	}
}
