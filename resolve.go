package gemini

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// URLMaxLength is the longest request URL a server is required to accept.
const URLMaxLength = 1024

// hostProfile is idna.Lookup without the STD3 restriction, so hostnames
// with underscores still resolve.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
)

// Resolve turns input into an absolute URL.
//
// With an empty base, input may be bare (example.org/page), in which case
// the gemini scheme is assumed. Otherwise input is resolved against base as
// a relative reference, the way a link on the page at base would be.
//
// Hostnames are converted to punycode. The default port is not added.
func Resolve(base, input string) (*url.URL, error) {
	input = strings.TrimSpace(input)

	u, err := resolve(base, input)
	if err != nil {
		return nil, &ResolutionError{Input: input, Err: err}
	}
	if u.Host == "" {
		return nil, &ResolutionError{Input: input, Err: ErrMissingHost}
	}

	host, err := punycodeHost(u.Host)
	if err != nil {
		return nil, &ResolutionError{Input: input, Err: err}
	}
	u.Host = host

	if len(u.String()) > URLMaxLength {
		return nil, &ResolutionError{Input: input, Err: ErrURLTooLong}
	}
	return u, nil
}

func resolve(base, input string) (*url.URL, error) {
	if base == "" {
		if !strings.Contains(input, "://") {
			input = "gemini://" + input
		}
		u, err := url.Parse(input)
		if err != nil {
			return nil, err
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("%q is not an absolute url", input)
		}
		// Resolving an absolute URL against itself removes dot segments,
		// giving the same form as the base branch below.
		return u.ResolveReference(u), nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base: %w", err)
	}
	if !b.IsAbs() {
		return nil, fmt.Errorf("base %q is not an absolute url", base)
	}
	ref, err := url.Parse(input)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(ref), nil
}

// punycodeHost converts the hostname part of host to its ASCII form,
// keeping any port. IP literals are left alone.
func punycodeHost(host string) (string, error) {
	hostname, port, err := net.SplitHostPort(host)
	if err != nil {
		// No port
		hostname, port = host, ""
	}
	if strings.HasPrefix(hostname, "[") || net.ParseIP(hostname) != nil {
		return host, nil
	}

	ascii, err := hostProfile.ToASCII(hostname)
	if err != nil {
		return "", fmt.Errorf("convert %q to punycode: %w", hostname, err)
	}
	if port == "" {
		return ascii, nil
	}
	return net.JoinHostPort(ascii, port), nil
}

// hostPort returns the address to dial for u, adding DefaultPort when the
// URL has none.
func hostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = DefaultPort
	}
	return net.JoinHostPort(u.Hostname(), port)
}
