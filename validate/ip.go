package validate

import (
	"fmt"
	"net"
	"strings"

	"github.com/rdapkit/rdap/errs"
)

// IPVersion distinguishes an IPv4 from an IPv6 address.
type IPVersion int

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// IP validates and canonicalizes an IPv4 or IPv6 literal, per RFC 4291 for
// IPv6. A zone suffix ("%eth0") is accepted but returned separately, as it
// is not part of the canonical address used for bootstrap lookup or caching.
func IP(s string) (canonical string, version IPVersion, zone string, err error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", 0, "", errs.Validation("IP address is empty", nil)
	}

	addr := trimmed
	if idx := strings.IndexByte(addr, '%'); idx != -1 {
		zone = addr[idx+1:]
		addr = addr[:idx]
		if zone == "" {
			return "", 0, "", errs.Validation("IP address has an empty zone suffix", map[string]any{"input": s})
		}
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return "", 0, "", errs.Validation(fmt.Sprintf("%q is not a valid IP address", s), map[string]any{"input": s})
	}

	if v4 := ip.To4(); v4 != nil && !strings.Contains(addr, ":") {
		return v4.String(), IPv4, zone, nil
	}

	return strings.ToLower(ip.String()), IPv6, zone, nil
}
