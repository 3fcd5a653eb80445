package quake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	ConnectTimeout = 15000 * time.Millisecond
	ReadTimeout    = 10000 * time.Millisecond
)

// Fetcher retrieves the raw feed body for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher performs one GET per call. Every failure comes back as *Error.
type HTTPFetcher struct {
	client *resty.Client
}

func NewFetcher(userAgent string) *HTTPFetcher {
	return newFetcher(userAgent, newTransport(ConnectTimeout, ReadTimeout))
}

func newFetcher(userAgent string, transport http.RoundTripper) *HTTPFetcher {
	client := resty.New().
		SetTransport(transport).
		SetRetryCount(0).
		SetCloseConnection(true).
		SetLogger(restyLogger{}).
		SetHeader("Accept", "application/json")
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}

	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := validateURL(rawURL); err != nil {
		return "", &Error{Kind: KindInvalidURL, Op: "fetch", URL: rawURL, Err: err}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		return "", &Error{Kind: KindIOFailure, Op: "fetch", URL: rawURL, Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Debug("Feed request rejected", "url", rawURL, "status", resp.StatusCode())
		return "", &Error{Kind: KindBadStatus, Op: "fetch", URL: rawURL, StatusCode: resp.StatusCode()}
	}

	body, err := readBody(resp.RawBody())
	if err != nil {
		return "", &Error{Kind: KindIOFailure, Op: "fetch", URL: rawURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return body, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return errors.New("URL is not absolute")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

// readBody decodes the stream as UTF-8 and joins its lines with no separator.
func readBody(body io.Reader) (string, error) {
	if body == nil {
		return "", nil
	}

	r := transform.NewReader(body, transform.Chain(
		unicode.UTF8.NewDecoder(),
		runes.Remove(runes.Predicate(isLineBreak)),
	))

	var sb strings.Builder
	if _, err := io.Copy(&sb, r); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}

func newTransport(connectTimeout, readTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: connectTimeout}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &readTimeoutConn{Conn: conn, timeout: readTimeout}, nil
		},
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		DisableKeepAlives:     true,
	}
}

// readTimeoutConn bounds every individual Read, so a stalled body fails
// after readTimeout even when the transfer as a whole is long.
type readTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *readTimeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	slog.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "fetcher")
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	slog.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "fetcher")
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "fetcher")
}
