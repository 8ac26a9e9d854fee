// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// NetRegistry maps IPv4 or IPv6 CIDR blocks to RDAP base URLs, per
// RFC 9224 §5. Entries are grouped by prefix length; Lookup searches each
// group and keeps the covering entry with the longest prefix,
// implementing longest-prefix match.
type NetRegistry struct {
	Networks map[int][]NetEntry

	numIPBytes int
}

// NetEntry pairs a CIDR block with its RDAP base URL candidates.
type NetEntry struct {
	Net  *net.IPNet
	URLs []*url.URL
}

type netEntrySorter []NetEntry

func (a netEntrySorter) Len() int      { return len(a) }
func (a netEntrySorter) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a netEntrySorter) Less(i, j int) bool {
	return bytes.Compare(a[i].Net.IP, a[j].Net.IP) <= 0
}

// NewNetRegistry creates a NetRegistry from an ipv4.json or ipv6.json
// document. ipVersion must be 4 or 6.
func NewNetRegistry(json []byte, ipVersion int) (*NetRegistry, error) {
	if ipVersion != 4 && ipVersion != 6 {
		return nil, fmt.Errorf("bootstrap: unknown IP version %d", ipVersion)
	}

	registry, err := parseRegistryFile(json)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: error parsing net registry: %w", err)
	}

	n := &NetRegistry{
		Networks:   map[int][]NetEntry{},
		numIPBytes: numIPBytesForVersion(ipVersion),
	}

	for cidr, urls := range registry.Entries {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil || len(ipNet.IP) != n.numIPBytes {
			continue
		}

		size, _ := ipNet.Mask.Size()
		n.Networks[size] = append(n.Networks[size], NetEntry{Net: ipNet, URLs: urls})
	}

	for _, nets := range n.Networks {
		sort.Sort(netEntrySorter(nets))
	}

	return n, nil
}

// Lookup returns the longest-prefix-matching entry's RDAP base URLs for
// an IP address or CIDR block of this registry's IP version.
func (n *NetRegistry) Lookup(input string) (*Result, error) {
	if !strings.Contains(input, "/") {
		input = fmt.Sprintf("%s/%d", input, n.numIPBytes*8)
	}

	_, lookupNet, err := net.ParseCIDR(input)
	if err != nil {
		return nil, err
	}
	if len(lookupNet.IP) != n.numIPBytes {
		return nil, errors.New("bootstrap: lookup address has the wrong IP protocol for this registry")
	}

	lookupMask, _ := lookupNet.Mask.Size()

	var bestEntry string
	var bestURLs []*url.URL
	bestMask := -1

	for mask, nets := range n.Networks {
		if mask < bestMask || mask > lookupMask {
			continue
		}

		index := sort.Search(len(nets), func(i int) bool {
			candidate := nets[i].Net
			return candidate.Contains(lookupNet.IP) || bytes.Compare(candidate.IP, lookupNet.IP) >= 0
		})

		if index == len(nets) || !nets[index].Net.Contains(lookupNet.IP) {
			continue
		}

		bestEntry = nets[index].Net.String()
		bestMask = mask
		bestURLs = nets[index].URLs
	}

	return &Result{Query: input, Entry: bestEntry, URLs: bestURLs}, nil
}

func numIPBytesForVersion(ipVersion int) int {
	if ipVersion == 4 {
		return net.IPv4len
	}
	return net.IPv6len
}
