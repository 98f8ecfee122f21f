package gemini

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// DefaultContentType is reported for diagnostics and for successful
// responses that don't name a content type.
const DefaultContentType = "text/plain"

// Response represents the response from a Gemini server.
type Response struct {
	// URL is the URL that was sent in the request.
	URL string
	Header
	// Body is everything after the status line, decoded as UTF-8 with
	// invalid sequences replaced.
	Body string
	// Cert is the leaf certificate the server presented.
	Cert *x509.Certificate
}

// Outcome is the result of Client.Request. It always carries something to
// show: the page on success, or a plain text description of what went
// wrong.
type Outcome struct {
	// RequestID is unique per call, for matching outcomes to requests when
	// several are in flight.
	RequestID uuid.UUID
	// URL is the location that was contacted last, or the raw target if it
	// could not be resolved.
	URL         string
	ContentType string
	Body        string
	// Header is the last status line received, zero if none was.
	Header Header
	// Err is nil only for a success response.
	Err error
}

type Client struct {
	// Timeout is equivalent to the Timeout field in net.Dialer.
	// It's the time it takes to form the initial connection.
	// The timeout of the DefaultClient is 15 seconds.
	Timeout time.Duration `validate:"gte=0"`
	// CertPolicy selects how server certificates are checked. The zero
	// value accepts any certificate.
	CertPolicy CertPolicy `validate:"oneof=0 1 2"`
	// RootCAs is used by the VerifyChain policy. Nil means the system pool.
	RootCAs *x509.CertPool
	// VerifyCertificate, if set, runs after CertPolicy and can reject the
	// server's certificate, e.g. for trust-on-first-use.
	VerifyCertificate func(cert *x509.Certificate, hostname string) error
	// KeyLogWriter receives TLS master secrets in NSS key log format.
	KeyLogWriter io.Writer
	// MaxRedirects is how many redirects Request follows. With zero a
	// redirect is returned to the caller like any other non-success status.
	MaxRedirects int `validate:"min=0,max=5"`
	// RequestsPerSecond limits outgoing connections when positive. Changes
	// apply from the next connection on.
	RequestsPerSecond float64 `validate:"gte=0"`
	// Burst is the rate limiter's bucket size, at least 1.
	Burst int `validate:"gte=0"`

	Logger *slog.Logger
	Tracer trace.Tracer

	limiterMu sync.Mutex
	limiter   *rate.Limiter
}

var DefaultClient = &Client{Timeout: 15 * time.Second}

var validate = validator.New()

// Validate checks the client's configuration.
func (c *Client) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid client configuration: %w", err)
	}
	return nil
}

// Request resolves target against base, fetches it and turns the result
// into an Outcome. base is the page the request originates from, empty for
// an address typed by the user. Request never fails: every error becomes a
// text/plain diagnostic body.
func (c *Client) Request(ctx context.Context, base, target string) Outcome {
	out := Outcome{
		RequestID:   uuid.New(),
		URL:         strings.TrimSpace(target),
		ContentType: DefaultContentType,
	}
	logger := c.logger().With("request_id", out.RequestID.String())

	ctx, span := c.tracer().Start(ctx, "gemini.request", trace.WithAttributes(
		attribute.String("gemini.base", base),
		attribute.String("gemini.target", target),
	))
	defer span.End()

	res, location, err := c.request(ctx, logger, base, target)
	if location != "" {
		out.URL = location
	}
	if res != nil {
		out.Header = res.Header
	}
	if err != nil {
		out.Err = err
		out.Body = Diagnose(out.URL, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("gemini request failed", "url", out.URL, "error", err)
		return out
	}

	if res.Meta != "" {
		out.ContentType = res.Meta
	}
	out.Body = res.Body
	logger.Debug("gemini request done", "url", out.URL, "status", res.Status, "content_type", out.ContentType, "size", len(out.Body))
	return out
}

// request runs the resolve, fetch and classify steps, following redirects
// up to MaxRedirects. It returns the last response seen and the location it
// came from, even on error.
func (c *Client) request(ctx context.Context, logger *slog.Logger, base, target string) (*Response, string, error) {
	if err := c.Validate(); err != nil {
		return nil, "", err
	}

	u, err := Resolve(base, target)
	if err != nil {
		return nil, "", err
	}

	for hops := 0; ; hops++ {
		location := u.String()
		if u.Scheme != "gemini" {
			return nil, location, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
		}

		logger.Debug("fetching", "url", location, "hop", hops)
		res, err := c.fetch(ctx, hostPort(u), u.Hostname(), location)
		if err != nil {
			return nil, location, err
		}
		if !IsStatusValid(res.Status) {
			logger.Debug("nonstandard status", "url", location, "status", res.Status)
		}

		switch res.Category() {
		case CategorySuccess:
			return res, location, nil
		case CategoryRedirect:
			if hops >= c.MaxRedirects {
				var err error
				if c.MaxRedirects > 0 {
					err = ErrTooManyRedirects
				}
				return res, location, &StatusError{Header: res.Header, Err: err}
			}
			next, err := Resolve(location, res.Meta)
			if err != nil {
				return res, location, &StatusError{Header: res.Header, Err: err}
			}
			logger.Info("following redirect", "from", location, "to", next.String(), "status", res.Status)
			u = next
		default:
			return res, location, &StatusError{Header: res.Header}
		}
	}
}

// Fetch a resource from a Gemini server with the given URL.
// It assumes port 1965 if no port is specified. Every well-formed response
// is returned, whatever its status; errors are reserved for failures to
// connect, exchange or parse.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	parsedURL, err := parseRequestURL(rawURL)
	if err != nil {
		return nil, err
	}
	if parsedURL.Host == "" {
		return nil, &ResolutionError{Input: rawURL, Err: ErrMissingHost}
	}
	return c.FetchWithHost(ctx, hostPort(parsedURL), parsedURL.String())
}

// FetchWithHost fetches a resource from a Gemini server at the given host, with the given URL.
// This can be used for proxying, where the URL host and actual server don't match.
// It assumes the host is using port 1965 if no port number is provided.
// IDNs in either the host or the URL are converted to punycode.
func (c *Client) FetchWithHost(ctx context.Context, host, rawURL string) (*Response, error) {
	parsedURL, err := parseRequestURL(rawURL)
	if err != nil {
		return nil, err
	}
	requestURL := parsedURL.String()
	if len(requestURL) > URLMaxLength {
		return nil, &ResolutionError{Input: rawURL, Err: ErrURLTooLong}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	asciiHost, err := punycodeHost(host)
	if err != nil {
		return nil, &ResolutionError{Input: host, Err: err}
	}
	host = asciiHost
	// Add port to host if needed
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), DefaultPort)
	}
	// Cert hostname has to match connection host, not request host
	hostname, _, _ := net.SplitHostPort(host)

	return c.fetch(ctx, host, hostname, requestURL)
}

// parseRequestURL parses rawURL and converts its host to punycode.
func parseRequestURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ResolutionError{Input: rawURL, Err: err}
	}
	if u.Host != "" {
		if u.Host, err = punycodeHost(u.Host); err != nil {
			return nil, &ResolutionError{Input: rawURL, Err: err}
		}
	}
	return u, nil
}

// Fetch a resource from a Gemini server with the default client.
func Fetch(ctx context.Context, url string) (*Response, error) {
	return DefaultClient.Fetch(ctx, url)
}

// FetchWithHost fetches a resource from a Gemini server at the given host, with the default client.
// This can be used for proxying, where the URL host and actual server don't match.
func FetchWithHost(ctx context.Context, host, url string) (*Response, error) {
	return DefaultClient.FetchWithHost(ctx, host, url)
}

// Request resolves and fetches target with the default client.
func Request(ctx context.Context, base, target string) Outcome {
	return DefaultClient.Request(ctx, base, target)
}

func (c *Client) fetch(ctx context.Context, addr, hostname, requestURL string) (res *Response, err error) {
	ctx, span := c.tracer().Start(ctx, "gemini.fetch", trace.WithAttributes(
		attribute.String("gemini.url", requestURL),
		attribute.String("net.peer.addr", addr),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.wait(ctx); err != nil {
		return nil, &TransportError{Op: OpConnect, Addr: addr, Err: err}
	}

	conn, err := c.connect(ctx, addr, hostname)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := sendRequest(conn, requestURL); err != nil {
		return nil, contextCause(ctx, OpWrite, err)
	}

	line, body, err := readResponse(conn)
	if err != nil {
		return nil, contextCause(ctx, OpRead, err)
	}

	header, err := ParseHeader(line)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("gemini.status", header.Status))

	return &Response{
		URL:    requestURL,
		Header: header,
		Body:   body,
		Cert:   leafCert(conn),
	}, nil
}

// contextCause replaces the closed-connection error an I/O call returns
// after the context was cancelled with the context's own error.
func contextCause(ctx context.Context, op CodecOp, err error) error {
	if ctx.Err() != nil {
		return &CodecError{Op: op, Err: ctx.Err()}
	}
	return err
}

func leafCert(conn *tls.Conn) *x509.Certificate {
	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil
	}
	return certs[0]
}

func (c *Client) wait(ctx context.Context) error {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	if err := c.rateLimiter().Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// rateLimiter returns the client's limiter, brought in line with the current
// RequestsPerSecond and Burst. Tokens already earned are kept.
func (c *Client) rateLimiter() *rate.Limiter {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()

	limit, burst := rate.Limit(c.RequestsPerSecond), max(c.Burst, 1)
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(limit, burst)
		return c.limiter
	}
	if c.limiter.Limit() != limit {
		c.limiter.SetLimit(limit)
	}
	if c.limiter.Burst() != burst {
		c.limiter.SetBurst(burst)
	}
	return c.limiter
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return noop.NewTracerProvider().Tracer("gemini")
}
