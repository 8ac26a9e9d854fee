// Package redact implements PII scrubbing of normalized RDAP responses.
//
// It walks every entity in a response tree, at any nesting depth
// (spec.md's Open Question decision: depth-unbounded, not top-level
// only), replacing vCard email/tel/adr property values with the literal
// string "[REDACTED]" when the corresponding policy flag is set. The
// input is never mutated. The returned value has its own copy of the
// entity tree (entities, VCards, vcardArrays); its other slice fields
// (status, events, links, remarks, nameservers, and the same fields on
// each entity) share their backing arrays with the input.
package redact

import "github.com/rdapkit/rdap/normalize"

const redactedValue = "[REDACTED]"

// Policy controls which vCard property classes are masked.
type Policy struct {
	Enabled         bool
	RedactEmails    bool
	RedactPhones    bool
	RedactAddresses bool
}

// DefaultPolicy returns spec.md §6's default: redaction on, all three
// fine-grained flags on.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:         true,
		RedactEmails:    true,
		RedactPhones:    true,
		RedactAddresses: true,
	}
}

// Domain returns a copy of d with its entity tree copied and redacted
// (see the package doc for which slices are shared with d). If
// policy.Enabled is false, the copied entity tree carries unmodified
// values (PII round-trip property: "with redaction disabled the emitted
// JSON equals the normalized JSON").
func Domain(d *normalize.Domain, policy Policy) *normalize.Domain {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Entities = redactEntities(d.Entities, policy)
	return &cp
}

// IP returns a copy of ip with its entity tree copied and redacted.
func IP(ip *normalize.IP, policy Policy) *normalize.IP {
	if ip == nil {
		return nil
	}
	cp := *ip
	cp.Entities = redactEntities(ip.Entities, policy)
	return &cp
}

// ASN returns a copy of a with its entity tree copied and redacted.
func ASN(a *normalize.ASN, policy Policy) *normalize.ASN {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Entities = redactEntities(a.Entities, policy)
	return &cp
}

// redactEntities deep-copies entities, recursing into nested entities at
// every level regardless of depth.
func redactEntities(entities []normalize.Entity, policy Policy) []normalize.Entity {
	if entities == nil {
		return nil
	}

	out := make([]normalize.Entity, len(entities))
	for i, e := range entities {
		out[i] = redactEntity(e, policy)
	}
	return out
}

func redactEntity(e normalize.Entity, policy Policy) normalize.Entity {
	cp := e
	cp.Entities = redactEntities(e.Entities, policy)

	if e.VCard != nil {
		card := *e.VCard
		if policy.Enabled && policy.RedactEmails {
			card.Emails = redactAll(card.Emails)
		}
		if policy.Enabled && policy.RedactPhones {
			card.Phones = redactAll(card.Phones)
		}
		if policy.Enabled && policy.RedactAddresses {
			card.Adr = redactAll(card.Adr)
		}
		cp.VCard = &card
	}

	if e.VCardArray != nil {
		cp.VCardArray = redactVCardArray(e.VCardArray, policy)
	}

	return cp
}

func redactAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i := range values {
		out[i] = redactedValue
	}
	return out
}

// redactVCardArray walks the raw ["vcard", [[name, params, type, value], ...]]
// structure (decoded from JSON into interface{}) and masks the value
// field of any property tuple whose name is email/tel/adr, so the raw
// vcardArray kept on each entity is masked too, not just the typed VCard.
// A response's Raw payload (IncludeRaw) is not passed through here.
func redactVCardArray(v any, policy Policy) any {
	top, ok := v.([]any)
	if !ok || len(top) != 2 {
		return deepCopyAny(v)
	}

	marker, _ := top[0].(string)
	props, ok := top[1].([]any)
	if marker != "vcard" || !ok {
		return deepCopyAny(v)
	}

	newProps := make([]any, len(props))
	for i, p := range props {
		newProps[i] = redactProperty(p, policy)
	}

	return []any{marker, newProps}
}

func redactProperty(p any, policy Policy) any {
	tuple, ok := p.([]any)
	if !ok || len(tuple) < 4 {
		return deepCopyAny(p)
	}

	name, _ := tuple[0].(string)
	shouldRedact := policy.Enabled && isRedactableProperty(name, policy)

	out := make([]any, len(tuple))
	copy(out, tuple)
	out[0] = deepCopyAny(tuple[0])
	out[1] = deepCopyAny(tuple[1])
	out[2] = deepCopyAny(tuple[2])

	if shouldRedact {
		out[3] = redactedValue
	} else {
		out[3] = deepCopyAny(tuple[3])
	}

	return out
}

func isRedactableProperty(name string, policy Policy) bool {
	switch name {
	case "email":
		return policy.RedactEmails
	case "tel":
		return policy.RedactPhones
	case "adr":
		return policy.RedactAddresses
	default:
		return false
	}
}

// deepCopyAny recursively copies a JSON-decoded interface{} tree
// (map[string]any / []any / scalars) so redaction never aliases the
// caller's original document.
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyAny(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyAny(item)
		}
		return out
	default:
		return val
	}
}
