package rdap

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dnsRegistryJSON = `{
  "version": "1.0",
  "publication": "2024-01-01T00:00:00Z",
  "services": [
    [["com"], ["https://rdap.example-registry.test/"]]
  ]
}`

const ipv4RegistryJSON = `{
  "version": "1.0",
  "publication": "2024-01-01T00:00:00Z",
  "services": [
    [["8.0.0.0/8"], ["https://rdap.arin.test/"]]
  ]
}`

const asnRegistryJSON = `{
  "version": "1.0",
  "publication": "2024-01-01T00:00:00Z",
  "services": [
    [["15000-16000"], ["https://rdap.arin.test/"]]
  ]
}`

const domainResponseJSON = `{
  "objectClassName": "domain",
  "handle": "EX-1",
  "ldhName": "EXAMPLE.COM",
  "entities": [
    {
      "handle": "REG-1",
      "roles": ["registrar"],
      "links": [{"rel": "self", "href": "https://rdap.example-registry.test/entity/REG-1"}],
      "vcardArray": ["vcard", [
        ["version", {}, "text", "4.0"],
        ["fn", {}, "text", "Example Registrar"]
      ]]
    }
  ]
}`

const ipResponseJSON = `{
  "objectClassName": "ip network",
  "handle": "NET-1",
  "startAddress": "8.0.0.0",
  "endAddress": "8.255.255.255",
  "ipVersion": "v4",
  "name": "GOOGLE-NET"
}`

const asnResponseJSON = `{
  "objectClassName": "autnum",
  "handle": "AS15169-1",
  "startAutnum": 15000,
  "endAutnum": 16000,
  "name": "GOOGLE"
}`

func newTestClient(t *testing.T) *Client {
	t.Helper()

	opts := DefaultOptions()
	opts.Retry.InitialDelay = 10 * time.Millisecond
	opts.Retry.MaxDelay = 50 * time.Millisecond

	c, err := NewClient(opts)
	require.NoError(t, err)

	httpmock.ActivateNonDefault(c.fetcher.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(func() { c.Close() })

	return c
}

func registerBootstrap(t *testing.T) {
	t.Helper()
	httpmock.RegisterResponder("GET", "https://data.iana.org/rdap/dns.json",
		httpmock.NewStringResponder(200, dnsRegistryJSON))
	httpmock.RegisterResponder("GET", "https://data.iana.org/rdap/ipv4.json",
		httpmock.NewStringResponder(200, ipv4RegistryJSON))
	httpmock.RegisterResponder("GET", "https://data.iana.org/rdap/asn.json",
		httpmock.NewStringResponder(200, asnRegistryJSON))
}

// Scenario 1 (spec.md §8): a successful domain query.
func TestClient_Domain_Success(t *testing.T) {
	c := newTestClient(t)
	registerBootstrap(t)
	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/domain/example.com",
		httpmock.NewStringResponder(200, domainResponseJSON))

	resp, err := c.Domain(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "EX-1", resp.Handle)
	assert.Equal(t, "example.com", resp.LDHName)
	require.NotNil(t, resp.Registrar)
	assert.Equal(t, "Example Registrar", resp.Registrar.Name)
	assert.Equal(t, "https://rdap.example-registry.test/domain/example.com", resp.Metadata.Source)
	assert.False(t, resp.Metadata.Cached)
}

// Scenario 2: an immediate re-query hits the cache, with no additional
// HTTP request made against the RDAP endpoint.
func TestClient_Domain_CacheHit(t *testing.T) {
	c := newTestClient(t)
	registerBootstrap(t)
	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/domain/example.com",
		httpmock.NewStringResponder(200, domainResponseJSON))

	first, err := c.Domain(context.Background(), "example.com")
	require.NoError(t, err)

	countBefore := httpmock.GetTotalCallCount()

	second, err := c.Domain(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, countBefore, httpmock.GetTotalCallCount(), "cache hit must not issue another HTTP request")
	assert.True(t, second.Metadata.Cached)
	assert.Equal(t, first.Metadata.Source, second.Metadata.Source)
	assert.Equal(t, first.Handle, second.Handle)
}

// Scenario 3: a successful IP network query.
func TestClient_IP_Success(t *testing.T) {
	c := newTestClient(t)
	registerBootstrap(t)
	httpmock.RegisterResponder("GET", "https://rdap.arin.test/ip/8.8.8.8",
		httpmock.NewStringResponder(200, ipResponseJSON))

	resp, err := c.IP(context.Background(), "8.8.8.8")
	require.NoError(t, err)

	assert.Equal(t, "8.0.0.0", resp.StartAddress)
	assert.Equal(t, "8.255.255.255", resp.EndAddress)
}

// Scenario 4: a successful ASN query.
func TestClient_ASN_Success(t *testing.T) {
	c := newTestClient(t)
	registerBootstrap(t)
	httpmock.RegisterResponder("GET", "https://rdap.arin.test/autnum/15169",
		httpmock.NewStringResponder(200, asnResponseJSON))

	resp, err := c.ASN(context.Background(), "15169")
	require.NoError(t, err)

	assert.EqualValues(t, 15000, resp.StartAutnum)
	assert.EqualValues(t, 16000, resp.EndAutnum)
}

// Scenario 5: a bootstrap entry pointing at a non-https/loopback URL is
// rejected by the SSRF guard before any socket connects.
func TestClient_Domain_SSRFBlocked(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://data.iana.org/rdap/dns.json",
		httpmock.NewStringResponder(200, `{"services": [[["test"], ["http://127.0.0.1/"]]]}`))
	httpmock.RegisterResponder("GET", "https://data.iana.org/rdap/ipv4.json",
		httpmock.NewStringResponder(200, ipv4RegistryJSON))
	httpmock.RegisterResponder("GET", "https://data.iana.org/rdap/asn.json",
		httpmock.NewStringResponder(200, asnRegistryJSON))

	_, err := c.Domain(context.Background(), "evil.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssrf")
}

// Scenario 6: 429 with Retry-After twice, then success on the third
// attempt.
// The advised Retry-After (50ms) is deliberately set above both retry
// attempts' computed backoff (10ms, then 20ms, per newTestClient's
// InitialDelay) so this test actually exercises spec.md §4.5's
// max(advised, computed) rule rather than trivially passing regardless
// of which side of the max wins.
func TestClient_IP_RetryAfterThenSuccess(t *testing.T) {
	c := newTestClient(t)
	registerBootstrap(t)

	attempt := 0
	httpmock.RegisterResponder("GET", "https://rdap.arin.test/ip/8.8.8.8",
		func(req *http.Request) (*http.Response, error) {
			attempt++
			if attempt < 3 {
				resp := httpmock.NewStringResponse(429, "")
				resp.Header.Set("Retry-After", "0.05")
				return resp, nil
			}
			return httpmock.NewStringResponse(200, ipResponseJSON), nil
		})

	start := time.Now()
	resp, err := c.IP(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Equal(t, 3, attempt)
	assert.Equal(t, "8.0.0.0", resp.StartAddress)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond, "two advised 50ms Retry-After delays must both be honored")
	assert.Less(t, elapsed, 5*time.Second)
}

// Validation errors never reach the network.
func TestClient_Domain_ValidationError(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Domain(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_ClearCacheAndStats(t *testing.T) {
	c := newTestClient(t)
	registerBootstrap(t)
	httpmock.RegisterResponder("GET", "https://rdap.example-registry.test/domain/example.com",
		httpmock.NewStringResponder(200, domainResponseJSON))

	_, err := c.Domain(context.Background(), "example.com")
	require.NoError(t, err)

	stats := c.GetStats()
	assert.Equal(t, 1, stats.Cache.Size)

	c.ClearCache()
	assert.Equal(t, 0, c.GetStats().Cache.Size)
}
