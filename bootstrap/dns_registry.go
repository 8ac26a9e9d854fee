// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
)

// DNSRegistry maps domain TLDs to RDAP base URLs, per RFC 9224 §4.
type DNSRegistry struct {
	DNS map[string][]*url.URL
}

// NewDNSRegistry creates a DNSRegistry from a dns.json document.
func NewDNSRegistry(json []byte) (*DNSRegistry, error) {
	r, err := parseRegistryFile(json)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: error parsing DNS registry: %w", err)
	}

	return &DNSRegistry{DNS: r.Entries}, nil
}

// Lookup finds the RDAP base URLs for a canonical domain name, trying the
// full name first and then each parent domain in turn (dropping the
// leftmost label each time) down to the TLD and finally the root.
func (d *DNSRegistry) Lookup(canonical string) *Result {
	fqdn := strings.TrimSuffix(strings.ToLower(canonical), ".")

	for {
		if urls, ok := d.DNS[fqdn]; ok {
			return &Result{Query: canonical, Entry: fqdn, URLs: urls}
		}

		if fqdn == "" {
			return &Result{Query: canonical}
		}

		if idx := strings.IndexByte(fqdn, '.'); idx == -1 {
			fqdn = ""
		} else {
			fqdn = fqdn[idx+1:]
		}
	}
}
