// Package fetch implements the RDAP fetcher: HTTPS GET with SSRF
// protection, per-host rate limiting, connection pooling, timeouts, and
// retry-after-aware status handling. A Retrier (retry.go) wraps Fetcher
// with backoff.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rdapkit/rdap/errs"
	"github.com/rdapkit/rdap/ratelimit"
	"github.com/rdapkit/rdap/ssrf"
)

// Config controls fetcher behavior, mapping to spec.md §6's timeout,
// userAgent/headers, and followRedirects/maxRedirects options.
type Config struct {
	UserAgent       string
	Headers         map[string]string
	DNSTimeout      time.Duration
	ConnectTimeout  time.Duration
	RequestTimeout  time.Duration
	FollowRedirects bool
	MaxRedirects    int

	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultConfig returns spec.md §6's defaults (5s per phase, 5 redirects).
func DefaultConfig() Config {
	return Config{
		UserAgent:           "rdapkit/1 (+https://github.com/rdapkit/rdap)",
		DNSTimeout:          5 * time.Second,
		ConnectTimeout:      5 * time.Second,
		RequestTimeout:      5 * time.Second,
		FollowRedirects:     true,
		MaxRedirects:        5,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
}

// Result is the outcome of a single successful fetch.
type Result struct {
	RawJSON  []byte
	FinalURL string
}

// Fetcher performs SSRF-guarded, rate-limited HTTPS GETs for RDAP.
type Fetcher struct {
	cfg     Config
	guard   *ssrf.Guard
	limiter *ratelimit.Limiter
	client  *http.Client
}

// New builds a Fetcher. guard and limiter are shared with the rest of the
// client so the connection pool, rate-limit buckets, and SSRF policy are
// shared by every query that Client makes.
func New(cfg Config, guard *ssrf.Guard, limiter *ratelimit.Limiter) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
		Control:   guard.DialControl(),
	}

	transport := &http.Transport{
		DialContext:         dnsBoundedDial(dialer, guard, cfg.DNSTimeout),
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		ForceAttemptHTTP2:   true,
	}

	f := &Fetcher{cfg: cfg, guard: guard, limiter: limiter}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return f.checkRedirect(req, via)
		},
	}
	f.client = client

	return f
}

// dnsBoundedDial resolves the dial target under dnsTimeout and validates
// every candidate address against guard before handing the literal IP to
// dialer, so the SSRF policy also governs the name-resolution step
// (spec.md §4.2 rule 5) rather than trusting whatever the transport's
// own resolver would have picked.
func dnsBoundedDial(dialer *net.Dialer, guard *ssrf.Guard, dnsTimeout time.Duration) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, errs.Network("invalid dial address", err, map[string]any{"address": addr})
		}

		resolveCtx := ctx
		if dnsTimeout > 0 {
			var cancel context.CancelFunc
			resolveCtx, cancel = context.WithTimeout(ctx, dnsTimeout)
			defer cancel()
		}

		ips, err := ssrf.ResolveAndValidate(resolveCtx, guard, host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, errs.Network("DNS resolution returned no addresses", nil, map[string]any{"host": host})
		}

		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
	}
}

// HTTPClient returns the underlying *http.Client, exposed so tests can
// activate github.com/jarcoal/httpmock against a non-default transport
// (httpmock.ActivateNonDefault) instead of patching http.DefaultTransport.
func (f *Fetcher) HTTPClient() *http.Client {
	return f.client
}

// Close releases pooled idle connections.
func (f *Fetcher) Close() {
	if t, ok := f.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if !f.cfg.FollowRedirects {
		return http.ErrUseLastResponse
	}

	if len(via) >= f.cfg.MaxRedirects {
		return errs.Protocol("too many redirects", map[string]any{"limit": f.cfg.MaxRedirects})
	}

	first := via[0]
	if first.URL.Scheme == "https" && req.URL.Scheme != "https" {
		return errs.Protocol("redirect crossed from https to a lesser scheme", map[string]any{"from": first.URL.String(), "to": req.URL.String()})
	}

	for _, seen := range via {
		if seen.URL.String() == req.URL.String() {
			return errs.Protocol("redirect loop detected", map[string]any{"url": req.URL.String()})
		}
	}

	if err := f.guard.Validate(req.URL); err != nil {
		return err
	}

	return nil
}

// Fetch performs a single GET against rawURL, returning the raw JSON body
// and the final (post-redirect) URL. It does not retry; see Retrier.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Protocol("malformed request URL", map[string]any{"url": rawURL, "cause": err.Error()})
	}

	if err := f.guard.Validate(u); err != nil {
		return nil, err
	}

	if err := f.limiter.Acquire(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if f.cfg.RequestTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, f.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.Protocol("could not build request", map[string]any{"cause": err.Error()})
	}

	req.Header.Set("Accept", "application/rdap+json, application/json;q=0.5")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	for k, v := range f.cfg.Headers {
		if strings.EqualFold(k, "Host") || strings.EqualFold(k, "Accept-Encoding") {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if rdapErr, ok := asRDAPError(err); ok {
			return nil, rdapErr
		}
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, errs.Timeout("request timed out", err, map[string]any{"url": u.String()})
		}
		if ctx.Err() != nil {
			return nil, errs.Cancelled(err)
		}
		return nil, errs.Network("request failed", err, map[string]any{"url": u.String()})
	}
	defer resp.Body.Close()

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return f.handleResponse(resp, finalURL)
}

func (f *Fetcher) handleResponse(resp *http.Response, finalURL string) (*Result, error) {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.NotFound("server returned 404", map[string]any{"url": finalURL})

	case resp.StatusCode == http.StatusTooManyRequests:
		delay := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, errs.RateLimited("server returned 429", delay, map[string]any{"url": finalURL})

	case resp.StatusCode >= 500:
		return nil, errs.Network(fmt.Sprintf("server returned %d", resp.StatusCode), nil, map[string]any{"url": finalURL, "status": resp.StatusCode})

	case resp.StatusCode >= 400:
		return nil, errs.Protocol(fmt.Sprintf("server returned %d", resp.StatusCode), map[string]any{"url": finalURL, "status": resp.StatusCode})

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.Network("failed to read response body", err, map[string]any{"url": finalURL})
		}

		var probe struct {
			ObjectClassName string `json:"objectClassName"`
		}
		if err := json.Unmarshal(body, &probe); err != nil || probe.ObjectClassName == "" {
			return nil, errs.Protocol("response is not a recognizable RDAP document", map[string]any{"url": finalURL})
		}

		return &Result{RawJSON: body, FinalURL: finalURL}, nil

	default:
		return nil, errs.Protocol(fmt.Sprintf("unexpected status %d", resp.StatusCode), map[string]any{"url": finalURL, "status": resp.StatusCode})
	}
}

// asRDAPError unwraps an *errs.Error that the SSRF guard's dial Control
// hook (or CheckRedirect) attached to the net/http transport error chain.
func asRDAPError(err error) (*errs.Error, bool) {
	var rdapErr *errs.Error
	for u := err; u != nil; {
		if e, ok := u.(*errs.Error); ok {
			rdapErr = e
			break
		}
		unwrapper, ok := u.(interface{ Unwrap() error })
		if !ok {
			break
		}
		u = unwrapper.Unwrap()
	}
	return rdapErr, rdapErr != nil
}

// parseRetryAfter parses a Retry-After header as delta-seconds or an
// HTTP-date, returning seconds to wait. Unparsable values yield 0.
func parseRetryAfter(header string) float64 {
	if header == "" {
		return 0
	}

	if secs, err := strconv.ParseFloat(header, 64); err == nil {
		return secs
	}

	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d.Seconds()
	}

	return 0
}
