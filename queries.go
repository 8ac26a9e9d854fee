package rdap

import (
	"context"
	"time"

	"github.com/rdapkit/rdap/bootstrap"
	"github.com/rdapkit/rdap/normalize"
	"github.com/rdapkit/rdap/validate"
)

// domainSpec implements spec.md §4.10's template instantiated for
// domain queries: validate.Domain, the bootstrap DNS registry, the
// "/domain/{ldh}" path suffix, and the "domain" expected objectClass.
var domainSpec = querySpec[DomainResponse, *DomainResponse]{
	queryType: "domain",
	validate:  validate.Domain,
	resolve: func(ctx context.Context, c *Client, canonical string) (*bootstrap.Result, error) {
		return c.bootstrap.Lookup(ctx, bootstrap.DNS, canonical)
	},
	pathFor:       func(canonical string) string { return "domain/" + canonical },
	expectedClass: "domain",
	assemble: func(rawJSON []byte, canonical, source string, c *Client) (*DomainResponse, error) {
		d, err := normalize.ParseDomain(rawJSON, normalize.Context{IncludeRaw: c.opts.includeRaw})
		if err != nil {
			return nil, err
		}

		resp := &DomainResponse{
			Query:       canonical,
			ObjectClass: d.ObjectClass,
			Handle:      d.Handle,
			Status:      d.Status,
			Entities:    fromEntities(d.Entities),
			Events:      fromEvents(d.Events),
			Links:       fromLinks(d.Links),
			Remarks:     d.Remarks,
			LDHName:     d.LDHName,
			UnicodeName: d.UnicodeName,
			Nameservers: d.Nameservers,
			Metadata: Metadata{
				Source:    source,
				Timestamp: time.Now().UTC(),
				Cached:    false,
			},
		}
		if d.Registrar != nil {
			resp.Registrar = &Registrar{Name: d.Registrar.Name, Handle: d.Registrar.Handle, URL: d.Registrar.URL}
		}
		if c.opts.includeRaw {
			resp.Raw = rawJSON
		}

		return resp, nil
	},
}

// ipSpec instantiates the template for IP network queries against the
// IPv4/IPv6 bootstrap registries (selected by validate.IP's version tag).
var ipSpec = querySpec[IPResponse, *IPResponse]{
	queryType: "ip",
	validate: func(s string) (string, error) {
		// The zone suffix, if any, is deliberately dropped here: per
		// validate.IP's doc, it is not part of the canonical address
		// used for bootstrap lookup or caching.
		canonical, _, _, err := validate.IP(s)
		if err != nil {
			return "", err
		}
		return canonical, nil
	},
	resolve: func(ctx context.Context, c *Client, canonical string) (*bootstrap.Result, error) {
		registry := bootstrap.IPv4
		if _, version, _, _ := validate.IP(canonical); version == validate.IPv6 {
			registry = bootstrap.IPv6
		}
		return c.bootstrap.Lookup(ctx, registry, canonical)
	},
	pathFor:       func(canonical string) string { return "ip/" + canonical },
	expectedClass: "ip network",
	assemble: func(rawJSON []byte, canonical, source string, c *Client) (*IPResponse, error) {
		ip, err := normalize.ParseIP(rawJSON, normalize.Context{IncludeRaw: c.opts.includeRaw})
		if err != nil {
			return nil, err
		}

		resp := &IPResponse{
			Query:        canonical,
			ObjectClass:  ip.ObjectClass,
			Handle:       ip.Handle,
			Status:       ip.Status,
			Entities:     fromEntities(ip.Entities),
			Events:       fromEvents(ip.Events),
			Links:        fromLinks(ip.Links),
			Remarks:      ip.Remarks,
			StartAddress: ip.StartAddress,
			EndAddress:   ip.EndAddress,
			IPVersion:    ip.IPVersion,
			Name:         ip.Name,
			Type:         ip.Type,
			Country:      ip.Country,
			Metadata: Metadata{
				Source:    source,
				Timestamp: time.Now().UTC(),
				Cached:    false,
			},
		}
		if c.opts.includeRaw {
			resp.Raw = rawJSON
		}

		return resp, nil
	},
}

// asnSpec instantiates the template for autonomous system queries.
var asnSpec = querySpec[ASNResponse, *ASNResponse]{
	queryType: "asn",
	validate: func(s string) (string, error) {
		n, err := validate.ASN(s)
		if err != nil {
			return "", err
		}
		return validate.ASNString(n), nil
	},
	resolve: func(ctx context.Context, c *Client, canonical string) (*bootstrap.Result, error) {
		return c.bootstrap.Lookup(ctx, bootstrap.ASN, canonical)
	},
	pathFor:       func(canonical string) string { return "autnum/" + canonical },
	expectedClass: "autnum",
	assemble: func(rawJSON []byte, canonical, source string, c *Client) (*ASNResponse, error) {
		a, err := normalize.ParseASN(rawJSON, normalize.Context{IncludeRaw: c.opts.includeRaw})
		if err != nil {
			return nil, err
		}

		resp := &ASNResponse{
			Query:       canonical,
			ObjectClass: a.ObjectClass,
			Handle:      a.Handle,
			Status:      a.Status,
			Entities:    fromEntities(a.Entities),
			Events:      fromEvents(a.Events),
			Links:       fromLinks(a.Links),
			Remarks:     a.Remarks,
			StartAutnum: a.StartAutnum,
			EndAutnum:   a.EndAutnum,
			Name:        a.Name,
			Type:        a.Type,
			Country:     a.Country,
			Metadata: Metadata{
				Source:    source,
				Timestamp: time.Now().UTC(),
				Cached:    false,
			},
		}
		if c.opts.includeRaw {
			resp.Raw = rawJSON
		}

		return resp, nil
	},
}
