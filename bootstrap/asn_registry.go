// OpenRDAP
// Copyright 2017 Tom Harwood
// MIT License, see the LICENSE file.

package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ASNRange represents a range of AS numbers and their RDAP base URLs. A
// single AS number is represented with MinASN==MaxASN.
type ASNRange struct {
	MinASN uint32
	MaxASN uint32
	URLs   []*url.URL
}

// String returns "ASn" for a single AS, or "ASx-ASy" for a range.
func (a ASNRange) String() string {
	if a.MinASN == a.MaxASN {
		return fmt.Sprintf("AS%d", a.MinASN)
	}
	return fmt.Sprintf("AS%d-AS%d", a.MinASN, a.MaxASN)
}

// ASNRegistry maps ASN ranges to RDAP base URLs, per RFC 9224 §5.3.
type ASNRegistry struct {
	ASNs []ASNRange
}

type asnRangeSorter []ASNRange

func (a asnRangeSorter) Len() int      { return len(a) }
func (a asnRangeSorter) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a asnRangeSorter) Less(i, j int) bool {
	return a[i].MinASN < a[j].MinASN
}

// NewASNRegistry creates an ASNRegistry from an asn.json document.
func NewASNRegistry(json []byte) (*ASNRegistry, error) {
	registry, err := parseRegistryFile(json)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: error parsing ASN registry: %w", err)
	}

	ranges := make([]ASNRange, 0, len(registry.Entries))
	for asn, urls := range registry.Entries {
		minASN, maxASN, err := parseASNRangeKey(asn)
		if err != nil {
			continue
		}
		ranges = append(ranges, ASNRange{MinASN: minASN, MaxASN: maxASN, URLs: urls})
	}

	sort.Sort(asnRangeSorter(ranges))

	return &ASNRegistry{ASNs: ranges}, nil
}

// Lookup returns the unique covering range's RDAP base URLs for asn.
func (a *ASNRegistry) Lookup(asn uint32) *Result {
	index := sort.Search(len(a.ASNs), func(i int) bool {
		return asn <= a.ASNs[i].MaxASN
	})

	var entry string
	var urls []*url.URL

	if index != len(a.ASNs) && asn >= a.ASNs[index].MinASN && asn <= a.ASNs[index].MaxASN {
		entry = a.ASNs[index].String()
		urls = a.ASNs[index].URLs
	}

	return &Result{Query: strconv.FormatUint(uint64(asn), 10), Entry: entry, URLs: urls}
}

func parseASNRangeKey(asnRange string) (uint32, uint32, error) {
	parts := strings.Split(asnRange, "-")
	if len(parts) != 1 && len(parts) != 2 {
		return 0, 0, errors.New("bootstrap: malformed ASN range key")
	}

	minASN, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, err
	}

	maxASN := minASN
	if len(parts) == 2 {
		maxASN, err = strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return 0, 0, err
		}
	}

	if minASN > maxASN {
		minASN, maxASN = maxASN, minASN
	}

	return uint32(minASN), uint32(maxASN), nil
}
