package rdap

import (
	"time"

	"github.com/rdapkit/rdap/bootstrap"
	rcache "github.com/rdapkit/rdap/cache"
	"github.com/rdapkit/rdap/fetch"
	"github.com/rdapkit/rdap/observe"
	"github.com/rdapkit/rdap/ratelimit"
	"github.com/rdapkit/rdap/redact"
	"github.com/rdapkit/rdap/ssrf"
)

// CacheOptions configures the response cache (spec.md §6 `cache`).
// A zero CacheOptions resolves to the defaults in normalize(); set
// Disabled to replicate the `cache: false` boolean short-form.
type CacheOptions struct {
	Disabled bool
	TTL      time.Duration
	MaxSize  int

	// NegativeTTL governs how long NotFound/NoServerFound outcomes are
	// cached; zero disables negative caching (SPEC_FULL.md §12).
	NegativeTTL time.Duration
}

// PrivacyOptions configures PII redaction (spec.md §6 `privacy`).
type PrivacyOptions struct {
	RedactPII       bool
	RedactEmails    bool
	RedactPhones    bool
	RedactAddresses bool
}

// TimeoutOptions configures per-phase timeouts (spec.md §6 `timeout`).
type TimeoutOptions struct {
	DNS     time.Duration
	Connect time.Duration
	Request time.Duration
}

// SSRFOptions mirrors spec.md §6's `ssrfProtection` object.
type SSRFOptions struct {
	Enabled         bool
	BlockPrivateIPs bool
	BlockLocalhost  bool
	BlockLinkLocal  bool
	BlockedDomains  []string
	AllowedDomains  []string
}

// RetryOptions mirrors spec.md §6's `retry` object.
type RetryOptions struct {
	MaxAttempts  int
	Backoff      fetch.BackoffStrategy
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
}

// RateLimitOptions mirrors spec.md §6's `rateLimit` object.
type RateLimitOptions struct {
	Enabled      bool
	PerHostRate  int
	PerHostBurst int
}

// BootstrapOptions configures the IANA registry resolver.
type BootstrapOptions struct {
	BaseURL       string
	CacheTimeout  time.Duration
	CacheFailures bool
}

// Options configures a Client. Every field has a documented default
// applied by DefaultOptions/normalize; the zero Options{} is valid input
// to NewClient.
type Options struct {
	Cache           CacheOptions
	Privacy         PrivacyOptions
	Timeout         TimeoutOptions
	UserAgent       string
	Headers         map[string]string
	FollowRedirects *bool // pointer so "unset" (nil) can default to true
	MaxRedirects    int
	SSRF            SSRFOptions
	Retry           RetryOptions
	RateLimit       RateLimitOptions
	Bootstrap       BootstrapOptions
	IncludeRaw      bool

	Sink observe.Sink
}

// DefaultOptions returns spec.md §6's documented defaults.
func DefaultOptions() Options {
	return Options{
		Cache: CacheOptions{
			TTL:         time.Hour,
			MaxSize:     1000,
			NegativeTTL: 60 * time.Second,
		},
		Privacy: PrivacyOptions{
			RedactPII:       true,
			RedactEmails:    true,
			RedactPhones:    true,
			RedactAddresses: true,
		},
		Timeout: TimeoutOptions{
			DNS:     5 * time.Second,
			Connect: 5 * time.Second,
			Request: 5 * time.Second,
		},
		UserAgent:    fetch.DefaultConfig().UserAgent,
		MaxRedirects: 5,
		SSRF: SSRFOptions{
			Enabled:         true,
			BlockPrivateIPs: true,
			BlockLocalhost:  true,
			BlockLinkLocal:  true,
		},
		Retry: RetryOptions{
			MaxAttempts:  3,
			Backoff:      fetch.BackoffExponential,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
		},
		RateLimit: RateLimitOptions{
			Enabled:      true,
			PerHostRate:  5,
			PerHostBurst: 10,
		},
		Bootstrap: BootstrapOptions{
			BaseURL:      bootstrap.DefaultBaseURL,
			CacheTimeout: 24 * time.Hour,
		},
	}
}

// normalized is the fully-defaulted, component-ready form of Options,
// produced by normalize() (spec.md §9's design note: fills zero values
// with defaults and accepts the boolean short-forms).
type normalized struct {
	cache     rcache.Options
	privacy   redact.Policy
	fetchCfg  fetch.Config
	retryCfg  fetch.RetryConfig
	ssrfOpts  ssrf.Options
	rateOpts  ratelimit.Options
	bootstrap bootstrap.Options
	sink      observe.Sink
	includeRaw bool
}

// isZero reports whether o has no fields set. normalize() treats a zero
// block as unset and substitutes the defaults, so a block whose only
// setting is Enabled=false (every other field zero) cannot be told apart
// from an absent block and resolves to the defaults, Enabled included.
// The same holds for RateLimitOptions and PrivacyOptions below.
func (o SSRFOptions) isZero() bool {
	return !o.Enabled && !o.BlockPrivateIPs && !o.BlockLocalhost && !o.BlockLinkLocal &&
		len(o.BlockedDomains) == 0 && len(o.AllowedDomains) == 0
}

func (o RateLimitOptions) isZero() bool {
	return o == RateLimitOptions{}
}

func (o PrivacyOptions) isZero() bool {
	return o == PrivacyOptions{}
}

func (o CacheOptions) isZero() bool {
	return !o.Disabled && o.TTL == 0 && o.MaxSize == 0 && o.NegativeTTL == 0
}

// normalize fills zero-valued fields of o with DefaultOptions()'s values
// and maps the spec.md §6 shape into each component's own Options type.
func (o Options) normalize() normalized {
	d := DefaultOptions()

	cacheTTL, maxSize, negTTL := o.Cache.TTL, o.Cache.MaxSize, o.Cache.NegativeTTL
	if o.Cache.isZero() {
		cacheTTL, maxSize, negTTL = d.Cache.TTL, d.Cache.MaxSize, d.Cache.NegativeTTL
	} else {
		if cacheTTL == 0 {
			cacheTTL = d.Cache.TTL
		}
		if maxSize == 0 {
			maxSize = d.Cache.MaxSize
		}
		// negTTL left as-is: an explicit zero disables negative caching.
	}

	userAgent := o.UserAgent
	if userAgent == "" {
		userAgent = d.UserAgent
	}

	maxRedirects := o.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = d.MaxRedirects
	}
	followRedirects := true
	if o.FollowRedirects != nil {
		followRedirects = *o.FollowRedirects
	}

	dnsTimeout, connectTimeout, requestTimeout := o.Timeout.DNS, o.Timeout.Connect, o.Timeout.Request
	if dnsTimeout == 0 {
		dnsTimeout = d.Timeout.DNS
	}
	if connectTimeout == 0 {
		connectTimeout = d.Timeout.Connect
	}
	if requestTimeout == 0 {
		requestTimeout = d.Timeout.Request
	}

	ssrfSrc := o.SSRF
	if ssrfSrc.isZero() {
		ssrfSrc = d.SSRF
	}
	ssrfOpts := ssrf.Options{
		Enabled:         ssrfSrc.Enabled,
		BlockLoopback:   ssrfSrc.BlockLocalhost,
		BlockPrivateIPs: ssrfSrc.BlockPrivateIPs,
		BlockLinkLocal:  ssrfSrc.BlockLinkLocal,
		AllowedDomains:  ssrfSrc.AllowedDomains,
		BlockedDomains:  ssrfSrc.BlockedDomains,
	}

	retryMaxAttempts := o.Retry.MaxAttempts
	if retryMaxAttempts == 0 {
		retryMaxAttempts = d.Retry.MaxAttempts
	}
	retryStrategy := o.Retry.Backoff
	if retryStrategy == "" {
		retryStrategy = d.Retry.Backoff
	}
	retryInitial := o.Retry.InitialDelay
	if retryInitial == 0 {
		retryInitial = d.Retry.InitialDelay
	}
	retryMax := o.Retry.MaxDelay
	if retryMax == 0 {
		retryMax = d.Retry.MaxDelay
	}

	rateSrc := o.RateLimit
	if rateSrc.isZero() {
		rateSrc = d.RateLimit
	}
	rateOpts := ratelimit.Options{
		Enabled:      rateSrc.Enabled,
		PerHostRate:  rateSrc.PerHostRate,
		PerHostBurst: rateSrc.PerHostBurst,
		IdleInterval: ratelimit.DefaultOptions().IdleInterval,
	}
	if rateOpts.PerHostRate == 0 {
		rateOpts.PerHostRate = d.RateLimit.PerHostRate
	}
	if rateOpts.PerHostBurst == 0 {
		rateOpts.PerHostBurst = d.RateLimit.PerHostBurst
	}

	bootstrapOpts := bootstrap.DefaultOptions()
	if o.Bootstrap.BaseURL != "" {
		bootstrapOpts.BaseURL = o.Bootstrap.BaseURL
	}
	if o.Bootstrap.CacheTimeout != 0 {
		bootstrapOpts.CacheTimeout = o.Bootstrap.CacheTimeout
	}
	bootstrapOpts.CacheFailures = o.Bootstrap.CacheFailures

	privacySrc := o.Privacy
	if privacySrc.isZero() {
		privacySrc = d.Privacy
	}
	privacy := redact.Policy{
		Enabled:         privacySrc.RedactPII,
		RedactEmails:    privacySrc.RedactEmails,
		RedactPhones:    privacySrc.RedactPhones,
		RedactAddresses: privacySrc.RedactAddresses,
	}

	sink := o.Sink
	if sink == nil {
		sink = observe.NopSink{}
	}

	return normalized{
		cache: rcache.Options{
			Enabled:     !o.Cache.Disabled,
			Capacity:    maxSize,
			TTL:         cacheTTL,
			NegativeTTL: negTTL,
		},
		privacy: privacy,
		fetchCfg: fetch.Config{
			UserAgent:           userAgent,
			Headers:             o.Headers,
			DNSTimeout:          dnsTimeout,
			ConnectTimeout:      connectTimeout,
			RequestTimeout:      requestTimeout,
			FollowRedirects:     followRedirects,
			MaxRedirects:        maxRedirects,
			MaxIdleConnsPerHost: fetch.DefaultConfig().MaxIdleConnsPerHost,
			IdleConnTimeout:     fetch.DefaultConfig().IdleConnTimeout,
		},
		retryCfg: fetch.RetryConfig{
			MaxAttempts:  retryMaxAttempts,
			Strategy:     retryStrategy,
			InitialDelay: retryInitial,
			MaxDelay:     retryMax,
			Jitter:       o.Retry.Jitter,
		},
		ssrfOpts:   ssrfOpts,
		rateOpts:   rateOpts,
		bootstrap:  bootstrapOpts,
		sink:       sink,
		includeRaw: o.IncludeRaw,
	}
}
