package fetch

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdapkit/rdap/errs"
	"github.com/rdapkit/rdap/ratelimit"
	"github.com/rdapkit/rdap/ssrf"
)

func newTestFetcher(t *testing.T) (*Fetcher, func()) {
	t.Helper()

	guard := ssrf.New(ssrf.DefaultOptions())
	limiter := ratelimit.New(ratelimit.DefaultOptions())

	f := New(DefaultConfig(), guard, limiter)
	httpmock.ActivateNonDefault(f.HTTPClient())

	return f, func() {
		httpmock.DeactivateAndReset()
		limiter.Close()
		f.Close()
	}
}

func TestFetchSuccess(t *testing.T) {
	f, cleanup := newTestFetcher(t)
	defer cleanup()

	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/domain/example.com",
		httpmock.NewStringResponder(200, `{"objectClassName":"domain","handle":"EX-1"}`))

	result, err := f.Fetch(context.Background(), "https://rdap.example-registry.test/domain/example.com")
	require.NoError(t, err)
	assert.Contains(t, string(result.RawJSON), "EX-1")
	assert.Equal(t, "https://rdap.example-registry.test/domain/example.com", result.FinalURL)
}

func TestFetchNotFoundIsNotRetryable(t *testing.T) {
	f, cleanup := newTestFetcher(t)
	defer cleanup()

	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/domain/missing.com",
		httpmock.NewStringResponder(404, ``))

	_, err := f.Fetch(context.Background(), "https://rdap.example-registry.test/domain/missing.com")
	require.Error(t, err)

	var rdapErr *errs.Error
	require.ErrorAs(t, err, &rdapErr)
	assert.Equal(t, errs.CodeNotFound, rdapErr.Code)
	assert.False(t, rdapErr.Retryable())
}

func TestFetchRateLimited(t *testing.T) {
	f, cleanup := newTestFetcher(t)
	defer cleanup()

	responder := httpmock.NewStringResponder(429, ``)
	responder = responder.HeaderSet(http.Header{"Retry-After": []string{"2"}})
	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/ip/8.8.8.8", responder)

	_, err := f.Fetch(context.Background(), "https://rdap.example-registry.test/ip/8.8.8.8")
	require.Error(t, err)
}

func TestFetchBlocksSSRF(t *testing.T) {
	f, cleanup := newTestFetcher(t)
	defer cleanup()

	_, err := f.Fetch(context.Background(), "http://127.0.0.1/domain/x")
	require.Error(t, err)
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	f, cleanup := newTestFetcher(t)
	defer cleanup()

	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/domain/flaky.com",
		httpmock.NewStringResponder(503, ``))

	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	r := NewRetrier(f, cfg)

	_, err := r.Fetch(context.Background(), "https://rdap.example-registry.test/domain/flaky.com")
	require.Error(t, err)
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	f, cleanup := newTestFetcher(t)
	defer cleanup()

	calls := 0
	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/ip/8.8.8.8",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, ``), nil
			}
			return httpmock.NewStringResponse(200, `{"objectClassName":"ip network","handle":"NET-1"}`), nil
		})

	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	r := NewRetrier(f, cfg)

	result, err := r.Fetch(context.Background(), "https://rdap.example-registry.test/ip/8.8.8.8")
	require.NoError(t, err)
	assert.Contains(t, string(result.RawJSON), "NET-1")
	assert.Equal(t, 3, calls)
}

func TestBackoffDelayIsMonotonicForExponential(t *testing.T) {
	r := &Retrier{cfg: RetryConfig{Strategy: BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second}}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 5; attempt++ {
		d := r.computedDelay(attempt)
		assert.Greater(t, d, prev)
		prev = d
	}
}
