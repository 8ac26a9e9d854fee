// Package ssrf implements the RDAP fetcher's Server-Side Request Forgery
// guard: URLs are checked before any socket is opened, and again at
// connect time against the exact address the TCP stack is about to dial,
// to defeat DNS-rebinding between the two checks.
//
// Modeled on the Kaikei-e-Alt SSRFValidator reference implementation
// (security.SSRFValidator: scheme/host/IP-class checks plus a dial-time
// net.Dialer.Control hook) and scoped to the policy in the RDAP client spec.
package ssrf

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/rdapkit/rdap/errs"
)

// Options configures the guard. All checks default to enabled.
type Options struct {
	Enabled          bool
	BlockLoopback    bool
	BlockPrivateIPs  bool
	BlockLinkLocal   bool
	AllowedDomains   []string
	BlockedDomains   []string
}

// DefaultOptions returns the all-protections-enabled policy from spec.md §4.2.
func DefaultOptions() Options {
	return Options{
		Enabled:         true,
		BlockLoopback:   true,
		BlockPrivateIPs: true,
		BlockLinkLocal:  true,
	}
}

var reservedLabels = []string{"localhost", ".localhost", ".internal", ".local", ".corp", ".lan", ".intranet"}

// Guard validates outbound RDAP request URLs and re-validates the resolved
// connect address just before the TCP handshake.
type Guard struct {
	opts Options
}

// New creates a Guard from opts.
func New(opts Options) *Guard {
	return &Guard{opts: opts}
}

// Validate checks u against the SSRF policy without performing any I/O
// beyond what ParseIP/inspection of the literal host requires.
func (g *Guard) Validate(u *url.URL) error {
	if !g.opts.Enabled {
		return nil
	}

	if u == nil || u.Host == "" {
		return errs.SSRF("URL has no host", map[string]any{"url": fmt.Sprint(u)})
	}

	host := strings.ToLower(u.Hostname())

	// The scheme check applies unconditionally: an allowlisted domain
	// relaxes the blocked-domain/IP-class checks below, not the
	// https-only requirement itself.
	if u.Scheme != "https" {
		return errs.SSRF("URL scheme must be https", map[string]any{"scheme": u.Scheme, "host": host})
	}

	if g.matchesList(host, g.opts.AllowedDomains) {
		return nil
	}

	if g.matchesList(host, g.opts.BlockedDomains) {
		return errs.SSRF("host is on the blocked domain list", map[string]any{"host": host})
	}

	if ip := net.ParseIP(host); ip != nil {
		if reason, blocked := g.classifyIP(ip); blocked {
			return errs.SSRF(fmt.Sprintf("host is a blocked IP literal (%s)", reason), map[string]any{"host": host})
		}
		return nil
	}

	for _, suffix := range reservedLabels {
		if host == strings.TrimPrefix(suffix, ".") || strings.HasSuffix(host, suffix) {
			return errs.SSRF(fmt.Sprintf("host %q matches a reserved internal label", host), map[string]any{"host": host})
		}
	}

	return nil
}

func (g *Guard) matchesList(host string, list []string) bool {
	for _, entry := range list {
		entry = strings.ToLower(entry)
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

// classifyIP reports whether ip is blocked by the guard's policy, and why.
func (g *Guard) classifyIP(ip net.IP) (reason string, blocked bool) {
	switch {
	case g.opts.BlockLoopback && ip.IsLoopback():
		return "loopback", true
	case g.opts.BlockPrivateIPs && ip.IsPrivate():
		return "private", true
	case g.opts.BlockLinkLocal && (ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()):
		return "link-local", true
	case ip.IsUnspecified():
		return "unspecified", true
	case isIPv4Broadcast(ip):
		return "broadcast", true
	case ip.IsMulticast():
		return "multicast", true
	default:
		return "", false
	}
}

func isIPv4Broadcast(ip net.IP) bool {
	v4 := ip.To4()
	return v4 != nil && v4.Equal(net.IPv4bcast)
}

// DialControl returns a net.Dialer.Control function that re-applies the
// guard's IP-class checks to the exact address about to be connected,
// closing the DNS-rebinding window between Validate and the TCP handshake
// (spec.md §4.2 rule 5).
func (g *Guard) DialControl() func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if !g.opts.Enabled {
			return nil
		}

		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return errs.SSRF("invalid connect address", map[string]any{"address": address})
		}

		ip := net.ParseIP(host)
		if ip == nil {
			return errs.SSRF("connect address did not resolve to a literal IP", map[string]any{"address": address})
		}

		if reason, blocked := g.classifyIP(ip); blocked {
			return errs.SSRF(fmt.Sprintf("connect address is blocked (%s)", reason), map[string]any{"address": address})
		}

		return nil
	}
}

// ResolveAndValidate resolves host's addresses and validates each one
// against the IP-class policy, used by the fetcher before connecting to a
// named host (spec.md §4.2 rule 5's "resolve just before connect").
func ResolveAndValidate(ctx context.Context, g *Guard, host string) ([]net.IP, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, errs.Network("DNS resolution failed", err, map[string]any{"host": host})
	}

	resolved := make([]net.IP, 0, len(ips))
	for _, addr := range ips {
		if reason, blocked := g.classifyIP(addr.IP); blocked {
			return nil, errs.SSRF(fmt.Sprintf("resolved address is blocked (%s)", reason), map[string]any{"host": host, "ip": addr.IP.String()})
		}
		resolved = append(resolved, addr.IP)
	}

	return resolved, nil
}
