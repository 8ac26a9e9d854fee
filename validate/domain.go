// Package validate implements the RDAP client's input validators.
//
// Each validator is a pure function mapping raw user input to a canonical
// form, or failing with a descriptive error. Validators are idempotent:
// Domain(Domain(x)) == Domain(x) for any valid x.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/rdapkit/rdap/errs"
)

var ldhLabelRe = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// idnaProfile mirrors the conservative ToASCII profile used elsewhere in
// the pack for hostile-input hostname conversion (see the SSRF validator
// reference: golang.org/x/net/idna.ToASCII with default profile).
var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.VerifyDNSLength(true),
)

// Domain validates and canonicalizes a domain name.
//
// Canonicalization: trim whitespace, reject embedded whitespace/angle
// brackets, convert to ASCII via IDNA/Punycode if non-ASCII, lowercase,
// then match the LDH label grammar.
func Domain(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", errs.Validation("domain name is empty", nil)
	}

	if strings.ContainsAny(trimmed, "<>") {
		return "", errs.Validation("domain name contains illegal characters", map[string]any{"input": s})
	}
	for _, r := range trimmed {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return "", errs.Validation("domain name contains embedded whitespace", map[string]any{"input": s})
		}
	}

	ascii := trimmed
	if !isASCII(trimmed) {
		converted, err := idnaProfile.ToASCII(trimmed)
		if err != nil {
			return "", errs.Validation("domain name is not a valid internationalized name", map[string]any{"input": s, "cause": err.Error()})
		}
		ascii = converted
	}

	canonical := strings.ToLower(ascii)
	canonical = strings.TrimSuffix(canonical, ".")

	if canonical == "" {
		return "", errs.Validation("domain name reduces to the empty (root) label", map[string]any{"input": s})
	}

	if strings.Contains(canonical, "..") {
		return "", errs.Validation("domain name contains consecutive dots", map[string]any{"input": s})
	}

	if !ldhLabelRe.MatchString(canonical) {
		return "", errs.Validation(fmt.Sprintf("domain name %q is not a valid LDH name", canonical), map[string]any{"input": s})
	}

	if strings.Contains(canonical, ".") && DomainPublicSuffix(canonical) == canonical {
		return "", errs.Validation(fmt.Sprintf("domain name %q is a bare public suffix, not a registrable name", canonical), map[string]any{"input": s})
	}

	return canonical, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// DomainTLD extracts the rightmost label ("TLD") from a canonical domain
// name. A single-label name is returned unchanged. The bootstrap DNS
// registry does its own label walk and does not call this function.
func DomainTLD(canonical string) string {
	idx := strings.LastIndexByte(canonical, '.')
	if idx == -1 {
		return canonical
	}
	return canonical[idx+1:]
}

// DomainPublicSuffix reports the ICANN public suffix of a canonical
// domain name (e.g. "co.uk" for "example.co.uk"). Domain uses it as a
// secondary check after the LDH grammar match, to reject a bare public
// suffix (e.g. "co.uk" alone) as an unregistrable query; the bootstrap
// registry lookup itself still walks labels right-to-left regardless of
// how many labels the public suffix spans.
func DomainPublicSuffix(canonical string) string {
	suffix, _ := publicsuffix.PublicSuffix(canonical)
	return suffix
}
