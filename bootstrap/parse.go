// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

// Package bootstrap implements RDAP bootstrapping (RFC 9224): mapping a
// domain TLD, IP CIDR block, or ASN range to the RDAP base URL(s) that can
// answer it, using IANA's published Service Registry files.
package bootstrap

import (
	"encoding/json"
	"errors"
	"net/url"
)

// RegistryFile represents a parsed bootstrap registry document
// ({asn,dns,ipv4,ipv6}.json).
type RegistryFile struct {
	Description string
	Publication string
	Version     string

	// Entries maps a service key (TLD, CIDR, or ASN range string) to its
	// ordered list of candidate RDAP base URLs.
	Entries map[string][]*url.URL

	JSON []byte
}

func parseRegistryFile(jsonDocument []byte) (*RegistryFile, error) {
	var doc struct {
		Description string
		Publication string
		Version     string

		Services [][][]string
	}

	if err := json.Unmarshal(jsonDocument, &doc); err != nil {
		return nil, err
	}

	r := &RegistryFile{
		Description: doc.Description,
		Publication: doc.Publication,
		Version:     doc.Version,
		JSON:        jsonDocument,
		Entries:     make(map[string][]*url.URL),
	}

	for _, s := range doc.Services {
		if len(s) != 2 {
			return nil, errors.New("bootstrap: malformed services entry (expected [keys, urls])")
		}

		keys := s[0]
		rawURLs := s[1]

		var urls []*url.URL
		for _, rawURL := range rawURLs {
			u, err := url.Parse(rawURL)
			if err != nil {
				continue // ignore unparsable URLs, try the next candidate
			}
			urls = append(urls, u)
		}

		if len(urls) == 0 {
			continue
		}

		for _, key := range keys {
			r.Entries[key] = urls
		}
	}

	return r, nil
}
