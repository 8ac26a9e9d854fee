// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

// Package rdap implements an RDAP (Registration Data Access Protocol,
// RFC 7480-7484) client.
//
// Given a domain name, IP address, or autonomous system number, it
// discovers the authoritative registry server via the IANA bootstrap
// registries (RFC 9224), fetches the record over HTTPS, and returns a
// normalized, privacy-filtered representation.
//
//	client, err := rdap.NewClient(rdap.DefaultOptions())
//	if err != nil {
//	        // ...
//	}
//	defer client.Close()
//
//	domain, err := client.Domain(ctx, "example.com")
//
// A Client is safe for concurrent use. Construct one with NewClient and
// reuse it: it owns a connection pool, response cache, and per-host rate
// limiters that are wasted if recreated per query.
//
// The subpackages implement the pipeline stages a query passes through:
// validate (input canonicalization), ssrf (outbound URL guard),
// ratelimit (per-host pacing), fetch (HTTP transport and retry),
// bootstrap (registry resolution), normalize (response decoding),
// redact (PII masking), cache (response caching), and observe
// (structured event emission).
package rdap
