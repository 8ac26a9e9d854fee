// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rdapkit/rdap/bootstrap/cache"
	"github.com/rdapkit/rdap/errs"
)

// RegistryType identifies which of the four bootstrap registries to query.
type RegistryType int

const (
	DNS RegistryType = iota
	IPv4
	IPv6
	ASN
)

// Filename returns the registry's JSON document name under the base URL.
func (r RegistryType) Filename() string {
	switch r {
	case ASN:
		return "asn.json"
	case DNS:
		return "dns.json"
	case IPv4:
		return "ipv4.json"
	case IPv6:
		return "ipv6.json"
	default:
		panic("bootstrap: unknown RegistryType")
	}
}

const DefaultBaseURL = "https://data.iana.org/rdap/"

// Result is the outcome of a single registry lookup.
type Result struct {
	Query string
	Entry string
	URLs  []*url.URL
}

// Options configures the Client.
type Options struct {
	BaseURL      string
	CacheTimeout time.Duration

	// CacheFailures remembers a failed registry download for CacheTimeout
	// rather than retrying it on every subsequent Lookup. Default false:
	// every Lookup against a not-yet-loaded registry retries the download.
	CacheFailures bool
}

// DefaultOptions returns spec.md §4.6's defaults: IANA's base URL, 24h cache.
func DefaultOptions() Options {
	return Options{
		BaseURL:      DefaultBaseURL,
		CacheTimeout: 24 * time.Hour,
	}
}

// Client fetches and caches the four IANA bootstrap registries, resolving
// an RDAP query (domain/IP/ASN) to candidate authoritative base URLs.
//
// Each registry is protected by a one-shot initializer so concurrent cold
// lookups collapse to a single download (spec.md §5).
type Client struct {
	HTTP  *http.Client
	Cache cache.RegistryCache
	opts  Options

	mu         sync.RWMutex
	registries map[RegistryType]any
	loading    map[RegistryType]*sync.WaitGroup
	failures   map[RegistryType]error
	failedAt   map[RegistryType]time.Time
}

// New creates a bootstrap Client.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CacheTimeout == 0 {
		opts.CacheTimeout = 24 * time.Hour
	}

	c := &Client{
		HTTP:       httpClient,
		Cache:      cache.NewMemoryCache(),
		opts:       opts,
		registries: make(map[RegistryType]any),
		loading:    make(map[RegistryType]*sync.WaitGroup),
		failures:   make(map[RegistryType]error),
		failedAt:   make(map[RegistryType]time.Time),
	}
	c.Cache.SetTimeout(opts.CacheTimeout)

	return c
}

// Lookup resolves input (a canonical domain name for DNS, an IP/CIDR
// literal for IPv4/IPv6, or a decimal ASN string for ASN) against
// registry, downloading and caching the registry file on first use or
// once its cache entry has expired.
func (c *Client) Lookup(ctx context.Context, registry RegistryType, input string) (*Result, error) {
	reg, err := c.registryFor(ctx, registry)
	if err != nil {
		return nil, err
	}

	switch registry {
	case DNS:
		return reg.(*DNSRegistry).Lookup(input), nil
	case IPv4, IPv6:
		return reg.(*NetRegistry).Lookup(input)
	case ASN:
		asn, convErr := parseDecimalASN(input)
		if convErr != nil {
			return nil, errs.Validation(convErr.Error(), map[string]any{"input": input})
		}
		return reg.(*ASNRegistry).Lookup(asn), nil
	default:
		panic("bootstrap: unknown RegistryType")
	}
}

func (c *Client) registryFor(ctx context.Context, registry RegistryType) (any, error) {
	c.mu.RLock()
	if reg, ok := c.registries[registry]; ok && c.Cache.State(registry.Filename()) != cache.Expired {
		c.mu.RUnlock()
		return reg, nil
	}
	if c.opts.CacheFailures {
		if failErr, ok := c.failures[registry]; ok && time.Since(c.failedAt[registry]) < c.opts.CacheTimeout {
			c.mu.RUnlock()
			return nil, failErr
		}
	}
	c.mu.RUnlock()

	return c.loadOnce(ctx, registry)
}

// loadOnce ensures only one in-flight download per registry type, even
// under concurrent cold lookups, per spec.md §5.
func (c *Client) loadOnce(ctx context.Context, registry RegistryType) (any, error) {
	c.mu.Lock()
	if wg, loading := c.loading[registry]; loading {
		c.mu.Unlock()
		wg.Wait()

		c.mu.RLock()
		reg, ok := c.registries[registry]
		c.mu.RUnlock()
		if !ok {
			return nil, errs.Bootstrap(fmt.Sprintf("bootstrap registry %s failed to load", registry.Filename()), nil, nil)
		}
		return reg, nil
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.loading[registry] = wg
	c.mu.Unlock()

	reg, err := c.download(ctx, registry)

	c.mu.Lock()
	if err == nil {
		c.registries[registry] = reg
		delete(c.failures, registry)
	} else if c.opts.CacheFailures {
		c.failures[registry] = err
		c.failedAt[registry] = time.Now()
	}
	delete(c.loading, registry)
	c.mu.Unlock()
	wg.Done()

	return reg, err
}

func (c *Client) download(ctx context.Context, registry RegistryType) (any, error) {
	if data, ok := c.loadFromDiskCache(registry); ok {
		reg, err := newRegistry(registry, data)
		if err == nil {
			return reg, nil
		}
	}

	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return nil, errs.Bootstrap("invalid bootstrap base URL", err, map[string]any{"baseURL": c.opts.BaseURL})
	}
	fileURL, err := u.Parse(registry.Filename())
	if err != nil {
		return nil, errs.Bootstrap("invalid bootstrap file URL", err, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL.String(), nil)
	if err != nil {
		return nil, errs.Bootstrap("could not build bootstrap request", err, nil)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errs.Bootstrap("bootstrap registry download failed", err, map[string]any{"url": fileURL.String()})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Bootstrap(fmt.Sprintf("bootstrap registry returned status %d", resp.StatusCode), nil, map[string]any{"url": fileURL.String()})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Bootstrap("failed to read bootstrap registry body", err, nil)
	}

	reg, err := newRegistry(registry, body)
	if err != nil {
		return nil, errs.Bootstrap("failed to parse bootstrap registry", err, map[string]any{"url": fileURL.String()})
	}

	_ = c.Cache.Save(registry.Filename(), body)

	return reg, nil
}

func (c *Client) loadFromDiskCache(registry RegistryType) ([]byte, bool) {
	if c.Cache.State(registry.Filename()) == cache.Good {
		if data, err := c.Cache.Load(registry.Filename()); err == nil {
			return data, true
		}
	}
	return nil, false
}

func newRegistry(registry RegistryType, json []byte) (any, error) {
	switch registry {
	case ASN:
		return NewASNRegistry(json)
	case DNS:
		return NewDNSRegistry(json)
	case IPv4:
		return NewNetRegistry(json, 4)
	case IPv6:
		return NewNetRegistry(json, 6)
	default:
		panic("bootstrap: unknown RegistryType")
	}
}

func parseDecimalASN(s string) (uint32, error) {
	var asn uint32
	if _, err := fmt.Sscanf(s, "%d", &asn); err != nil {
		return 0, fmt.Errorf("bootstrap: %q is not a decimal ASN", s)
	}
	return asn, nil
}
