package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rdapkit/rdap/errs"
)

// ASN validates a single autonomous system number given as a string
// ("AS2856", "as2856", or "2856") or as an already-parsed uint32.
//
// Mirrors bootstrap.parseASN's trim-prefix behavior (teacher:
// github.com/openrdap/rdap/bootstrap), generalized to accept a numeric
// input directly as well as text.
func ASN(input any) (uint32, error) {
	switch v := input.(type) {
	case uint32:
		return v, nil
	case int:
		if v < 0 {
			return 0, errs.Validation("ASN must not be negative", map[string]any{"input": v})
		}
		return uint32(v), nil
	case string:
		return parseASNString(v)
	default:
		return 0, errs.Validation(fmt.Sprintf("unsupported ASN input type %T", input), nil)
	}
}

func parseASNString(s string) (uint32, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errs.Validation("ASN is empty", nil)
	}

	lowered := strings.ToLower(trimmed)
	lowered = strings.TrimPrefix(lowered, "as")

	n, err := strconv.ParseUint(lowered, 10, 32)
	if err != nil {
		return 0, errs.Validation(fmt.Sprintf("%q is not a valid ASN", s), map[string]any{"input": s, "cause": err.Error()})
	}

	return uint32(n), nil
}

// ASNRange validates a range query of the form "ASx-ASy", returning the
// ordered (min, max) pair. x must be < y.
func ASNRange(s string) (min, max uint32, err error) {
	trimmed := strings.TrimSpace(s)
	parts := strings.SplitN(trimmed, "-", 2)
	if len(parts) != 2 {
		return 0, 0, errs.Validation(fmt.Sprintf("%q is not a valid ASN range", s), nil)
	}

	min, err = parseASNString(parts[0])
	if err != nil {
		return 0, 0, err
	}

	max, err = parseASNString(parts[1])
	if err != nil {
		return 0, 0, err
	}

	if min >= max {
		return 0, 0, errs.Validation(fmt.Sprintf("ASN range %q must have start < end", s), nil)
	}

	return min, max, nil
}

// ASNString renders a uint32 ASN as a plain decimal string (no "AS"
// prefix), the canonical form used in cache keys and the /autnum/{n} path.
func ASNString(asn uint32) string {
	return strconv.FormatUint(uint64(asn), 10)
}
