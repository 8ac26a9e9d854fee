package rdap

import (
	"context"
	"fmt"

	"github.com/rdapkit/rdap/bootstrap"
	rcache "github.com/rdapkit/rdap/cache"
	"github.com/rdapkit/rdap/fetch"
	"github.com/rdapkit/rdap/observe"
	"github.com/rdapkit/rdap/ratelimit"
	"github.com/rdapkit/rdap/redact"
	"github.com/rdapkit/rdap/ssrf"
)

// Client is the RDAP client. Construct with NewClient and reuse across
// queries: it owns a connection pool, response cache, rate limiters, and
// bootstrap registry cache that are expensive to recreate per query.
type Client struct {
	opts normalized

	guard     *ssrf.Guard
	limiter   *ratelimit.Limiter
	fetcher   *fetch.Fetcher
	retrier   *fetch.Retrier
	bootstrap *bootstrap.Client
	cache     *rcache.Cache
	sink      observe.Sink
}

// NewClient builds a Client from opts. The zero value Options{} is valid
// and resolves to spec.md §6's documented defaults.
func NewClient(opts Options) (*Client, error) {
	n := opts.normalize()

	guard := ssrf.New(n.ssrfOpts)
	limiter := ratelimit.New(n.rateOpts)
	fetcher := fetch.New(n.fetchCfg, guard, limiter)
	retrier := fetch.NewRetrier(fetcher, n.retryCfg)
	bootstrapClient := bootstrap.New(fetcher.HTTPClient(), n.bootstrap)

	cache, err := rcache.New(n.cache)
	if err != nil {
		return nil, fmt.Errorf("rdap: could not build response cache: %w", err)
	}

	return &Client{
		opts:      n,
		guard:     guard,
		limiter:   limiter,
		fetcher:   fetcher,
		retrier:   retrier,
		bootstrap: bootstrapClient,
		cache:     cache,
		sink:      n.sink,
	}, nil
}

// Domain looks up an RDAP domain record for name (spec.md §6 `domain`).
func (c *Client) Domain(ctx context.Context, name string) (*DomainResponse, error) {
	return runQuery(ctx, c, domainSpec, name)
}

// IP looks up an RDAP IP network record for addr (spec.md §6 `ip`).
func (c *Client) IP(ctx context.Context, addr string) (*IPResponse, error) {
	return runQuery(ctx, c, ipSpec, addr)
}

// ASN looks up an RDAP autonomous system record for asn, given as a
// decimal string or "AS"-prefixed string (spec.md §6 `asn`).
func (c *Client) ASN(ctx context.Context, asn string) (*ASNResponse, error) {
	return runQuery(ctx, c, asnSpec, asn)
}

// ClearCache empties the response cache (spec.md §6 `clearCache`).
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// GetStats returns cache and bootstrap resolver statistics (spec.md §6
// `getStats`).
func (c *Client) GetStats() Stats {
	cs := c.cache.Stats()
	return Stats{
		Cache: CacheStats{
			Enabled: c.opts.cache.Enabled,
			Size:    cs.Size,
			MaxSize: cs.Capacity,
			TTL:     c.opts.cache.TTL,
			Hits:    cs.Hits,
			Misses:  cs.Misses,
		},
		Bootstrap: BootstrapStats{
			BaseURL: c.opts.bootstrap.BaseURL,
		},
	}
}

// Close releases the fetcher's idle connections and stops the rate
// limiter's idle-bucket sweeper (SPEC_FULL.md §7, spec.md §9 `destroy`).
func (c *Client) Close() error {
	c.fetcher.Close()
	c.limiter.Close()
	return nil
}

// redactionPolicy returns the client's privacy policy. It is applied to
// the typed entity fields and each entity's vcardArray; the Raw payload
// attached under IncludeRaw is returned as fetched, unredacted.
func (c *Client) redactionPolicy() redact.Policy {
	return c.opts.privacy
}
