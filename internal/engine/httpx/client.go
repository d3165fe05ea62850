// Package httpx is the HTTP client used for the crawl's side lookups
// (geocoding). HTTPS connections present a Chrome TLS fingerprint.
package httpx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	utls "github.com/refraction-networking/utls"
)

const (
	maxRetries   = 3
	baseBackoff  = 2 * time.Second
	maxBackoff   = 30 * time.Second
	jitterFactor = 0.5
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// RateLimitError means the server asked us to slow down.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

type Options struct {
	// UserAgent replaces the rotating browser agents. Services such as
	// Nominatim require an identifying agent.
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

type Client struct {
	http       *http.Client
	userAgent  string
	backoff    time.Duration
	rateLimits atomic.Int64
}

func NewClient(o Options) *Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}

			// Chrome hello, but only offer HTTP/1.1 since the transport
			// cannot speak h2 over a custom conn.
			spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
			if err != nil {
				conn.Close()
				return nil, err
			}
			for i, ext := range spec.Extensions {
				if alpn, ok := ext.(*utls.ALPNExtension); ok {
					alpn.AlpnProtocols = []string{"http/1.1"}
					spec.Extensions[i] = alpn
					break
				}
			}

			tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
			if err := tlsConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, err
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	if o.ProxyURL != "" {
		if proxyParsed, err := url.Parse(o.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyParsed)
			// The proxy owns the connection, so use standard TLS.
			transport.DialTLSContext = nil
			transport.TLSClientConfig = &tls.Config{}
		}
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	backoff := o.Backoff
	if backoff <= 0 {
		backoff = baseBackoff
	}

	return &Client{
		http:      &http.Client{Transport: transport, Timeout: timeout},
		userAgent: o.UserAgent,
		backoff:   backoff,
	}
}

// Get fetches rawURL, retrying rate-limited responses with exponential
// backoff and jitter.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var lastErr error
	for attempt := range maxRetries {
		body, err := c.do(ctx, rawURL, header)
		if err == nil {
			c.rateLimits.Store(0)
			return body, nil
		}
		lastErr = err

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			return nil, err
		}
		c.rateLimits.Add(1)

		if attempt == maxRetries-1 {
			break
		}
		wait := min(c.backoff*time.Duration(1<<uint(attempt)), maxBackoff)
		wait += time.Duration(float64(wait) * jitterFactor * rand.Float64())

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, lastErr
}

// ConsecutiveRateLimits returns how many rate limits happened since the
// last successful request.
func (c *Client) ConsecutiveRateLimits() int64 {
	return c.rateLimits.Load()
}

func (c *Client) do(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	ua := c.userAgent
	if ua == "" {
		ua = userAgents[rand.IntN(len(userAgents))]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", "en")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable:
		io.Copy(io.Discard, resp.Body)
		return nil, &RateLimitError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
