// Package httpengine is the async, connection-pooled, DNS-cached HTTP
// client used by every network-facing component of the extraction
// pipeline and the download coordinator. Its session state machine
// (resolve → connect → tls_handshake → write → read → shutdown/keep-alive)
// is collapsed, Go-style, into a single function per request whose local
// variables replace the original's explicit state struct; net/http's
// RoundTripper already performs resolve/connect/handshake/write/read as a
// single call, so this package's job is the policy layered on top of it:
// the shared DNS cache, the logical connection-pool accounting, transparent
// content decoding and the chunked Range downloader.
package httpengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ytget/ytdlpp/errs"
	"github.com/ytget/ytdlpp/internal/logger"
)

const (
	stepTimeout    = 30 * time.Second
	shutdownGrace  = 2 * time.Second
	defaultRetries = 3
)

// Response is the decoded result of a get/post operation.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Engine is the Go rendering of the spec's HTTP Engine component.
type Engine struct {
	client    *http.Client
	pool      *connPool
	dns       *dnsCache
	userAgent string
	retries   int
}

// Config are the Engine's optional construction parameters.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Retries   int
	ProxyURL  string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// New builds an Engine with a tuned Transport wired to the shared DNS cache
// and connection-pool accounting.
func New(cfg Config) *Engine {
	pool := newConnPool()
	dns := globalDNSCache

	base := &net.Dialer{Timeout: stepTimeout, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   stepTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: stepTimeout,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true, // the engine does its own Accept-Encoding/decode
		ReadBufferSize:        16 * 1024,
		WriteBufferSize:       16 * 1024,
		DialContext:           cachingDialContext(base.DialContext, dns, &net.Resolver{}),
	}
	configureTransport(tr)

	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err == nil {
			tr.Proxy = http.ProxyURL(u)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = stepTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Engine{
		client:    &http.Client{Timeout: timeout, Transport: tr},
		pool:      pool,
		dns:       dns,
		userAgent: ua,
		retries:   retries,
	}
}

// HTTPClient exposes the underlying *http.Client for callers (such as the
// Innertube client) that need to hand it to a third-party library.
func (e *Engine) HTTPClient() *http.Client { return e.client }

// Get performs a GET, applying headers, decoding the body per
// Content-Encoding, and retrying transient failures with backoff.
func (e *Engine) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return e.do(ctx, http.MethodGet, rawURL, nil, headers)
}

// Post performs a POST with the given body, same retry/decode policy as Get.
func (e *Engine) Post(ctx context.Context, rawURL string, body []byte, headers map[string]string) (*Response, error) {
	return e.do(ctx, http.MethodPost, rawURL, body, headers)
}

func (e *Engine) do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (*Response, error) {
	log := logger.WithComponent(logger.ComponentHTTP)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidURL, "parse request url", err)
	}
	key := poolKey(u)

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, backoff(attempt)); err != nil {
				return nil, errs.Wrap(errs.KindCancelled, "request cancelled during backoff", err)
			}
		}

		resp, err := e.attempt(ctx, method, rawURL, body, headers, key)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		log.Warn().Str("url", rawURL).Int("attempt", attempt+1).Err(err).Msg("retrying request")
	}
	return nil, errs.Wrap(errs.KindRequestFailed, "request failed after retries", lastErr)
}

// attempt performs one resolve→connect→tls→write→read→keep-alive cycle.
func (e *Engine) attempt(ctx context.Context, method, rawURL string, body []byte, headers map[string]string, key string) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidURL, "build request", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// Acquiring a logical pool slot is advisory bookkeeping only — the
	// real socket reuse is handled by Transport — but it keeps the
	// connection-pool invariant exercised and testable.
	e.pool.acquire(key)

	resp, err := e.client.Do(req)
	if err != nil {
		e.dns.invalidate(req.URL.Hostname())
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	e.pool.release(key, keepAliveFromResponse(resp))

	decoded, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: decoded, Header: resp.Header}, nil
}

func poolKey(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return host + ":" + port
}

func backoff(attempt int) time.Duration {
	d := 200 * time.Millisecond * time.Duration(1<<uint(attempt-1))
	if d > 3*time.Second {
		d = 3 * time.Second
	}
	return d
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
