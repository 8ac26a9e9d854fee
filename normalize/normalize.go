// Package normalize converts a raw RDAP JSON document (RFC 7483) into
// one of the client's normalized response shapes, extracting vCard
// fields, events, and nested entities along the way.
//
// Extraction logic for registrar/vcard fields is adapted from the
// teacher's jcard package (Property.Values(), Get(name) name lookup).
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rdapkit/rdap/errs"
	"github.com/rdapkit/rdap/jcard"
)

// maxEntityDepth bounds recursive entity nesting (spec.md §4.7's cyclic
// entity graph note recommends 8).
const maxEntityDepth = 8

// rawEntity mirrors RFC 7483's entity object shape for JSON decoding.
type rawEntity struct {
	Handle      string          `json:"handle"`
	Roles       []string        `json:"roles"`
	VCardArray  json.RawMessage `json:"vcardArray"`
	Entities    []rawEntity     `json:"entities"`
	PublicIDs   []rawPublicID   `json:"publicIds"`
	Remarks     []rawRemark     `json:"remarks"`
	Links       []rawLink       `json:"links"`
	Events      []rawEvent      `json:"events"`
	Status      []string        `json:"status"`
}

type rawPublicID struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type rawRemark struct {
	Title       string   `json:"title"`
	Description []string `json:"description"`
}

type rawLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type rawEvent struct {
	EventAction string `json:"eventAction"`
	EventDate   string `json:"eventDate"`
	EventActor  string `json:"eventActor,omitempty"`
}

type rawNameserver struct {
	LDHName     string `json:"ldhName"`
	UnicodeName string `json:"unicodeName"`
}

type rawDocument struct {
	ObjectClassName string          `json:"objectClassName"`
	Handle          string          `json:"handle"`
	Status          []string        `json:"status"`
	Entities        []rawEntity     `json:"entities"`
	Events          []rawEvent      `json:"events"`
	Links           []rawLink       `json:"links"`
	Remarks         []rawRemark     `json:"remarks"`

	LDHName     string          `json:"ldhName"`
	UnicodeName string          `json:"unicodeName"`
	Nameservers []rawNameserver `json:"nameservers"`

	StartAddress string `json:"startAddress"`
	EndAddress   string `json:"endAddress"`
	IPVersion    string `json:"ipVersion"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Country      string `json:"country"`

	StartAutnum *uint32 `json:"startAutnum"`
	EndAutnum   *uint32 `json:"endAutnum"`
}

// Context carries cross-cutting normalization options.
type Context struct {
	IncludeRaw bool
}

// Common holds the fields shared by all three response shapes, returned
// by decodeCommon() and assembled into the shape-specific type by the caller.
type Common struct {
	ObjectClass string
	Handle      string
	Status      []string
	Entities    []Entity
	Events      []Event
	Links       []Link
	Remarks     []string
}

// Event, Link, Entity, VCard, PublicID, Registrar mirror the root
// package's exported types structurally; normalize stays independent of
// the rdap package to avoid an import cycle (rdap imports normalize).
type Event struct {
	Type  string
	Date  string
	Actor string
}

type Link struct {
	Rel  string
	Href string
}

type PublicID struct {
	Type       string
	Identifier string
}

type VCard struct {
	FullName string
	Emails   []string
	Phones   []string
	Adr      []string
}

type Entity struct {
	Handle     string
	Roles      []string
	VCardArray any
	VCard      *VCard
	Entities   []Entity
	PublicIDs  []PublicID
	Remarks    []string
	Links      []Link
	Events     []Event
	Status     []string
}

type Registrar struct {
	Name   string
	Handle string
	URL    string
}

// Domain is the normalized domain query result.
type Domain struct {
	Common
	LDHName     string
	UnicodeName string
	Nameservers []string
	Registrar   *Registrar
}

// IP is the normalized IP network query result.
type IP struct {
	Common
	StartAddress string
	EndAddress   string
	IPVersion    int
	Name         string
	Type         string
	Country      string
}

// ASN is the normalized autonomous system query result.
type ASN struct {
	Common
	StartAutnum uint32
	EndAutnum   uint32
	Name        string
	Type        string
	Country     string
}

// ParseDomain decodes rawJSON as a domain object (expected objectClassName
// "domain"). The canonical query is not passed in: the caller sets the
// Query field on its own response wrapper.
func ParseDomain(rawJSON []byte, ctx Context) (*Domain, error) {
	var doc rawDocument
	if err := json.Unmarshal(rawJSON, &doc); err != nil {
		return nil, errs.Parse("malformed RDAP domain document", err, nil)
	}

	common, remarksFromEntities := decodeCommon(doc)

	d := &Domain{
		Common:      common,
		LDHName:     strings.ToLower(doc.LDHName),
		UnicodeName: doc.UnicodeName,
		Nameservers: dedupeNameservers(doc.Nameservers),
	}
	d.Remarks = append(d.Remarks, remarksFromEntities...)
	d.Registrar = extractRegistrar(d.Entities)

	return d, nil
}

// ParseIP decodes rawJSON as an "ip network" object.
func ParseIP(rawJSON []byte, ctx Context) (*IP, error) {
	var doc rawDocument
	if err := json.Unmarshal(rawJSON, &doc); err != nil {
		return nil, errs.Parse("malformed RDAP ip network document", err, nil)
	}

	common, remarksFromEntities := decodeCommon(doc)

	version := 0
	switch doc.IPVersion {
	case "v4":
		version = 4
	case "v6":
		version = 6
	}

	ip := &IP{
		Common:       common,
		StartAddress: doc.StartAddress,
		EndAddress:   doc.EndAddress,
		IPVersion:    version,
		Name:         doc.Name,
		Type:         doc.Type,
		Country:      doc.Country,
	}
	ip.Remarks = append(ip.Remarks, remarksFromEntities...)

	return ip, nil
}

// ParseASN decodes rawJSON as an "autnum" object.
func ParseASN(rawJSON []byte, ctx Context) (*ASN, error) {
	var doc rawDocument
	if err := json.Unmarshal(rawJSON, &doc); err != nil {
		return nil, errs.Parse("malformed RDAP autnum document", err, nil)
	}

	common, remarksFromEntities := decodeCommon(doc)

	a := &ASN{
		Common:  common,
		Name:    doc.Name,
		Type:    doc.Type,
		Country: doc.Country,
	}
	if doc.StartAutnum != nil {
		a.StartAutnum = *doc.StartAutnum
	}
	if doc.EndAutnum != nil {
		a.EndAutnum = *doc.EndAutnum
	} else {
		a.EndAutnum = a.StartAutnum
	}
	a.Remarks = append(a.Remarks, remarksFromEntities...)

	return a, nil
}

// ObjectClassName reports the raw objectClassName, used by the
// orchestrator to check it against the expected class for the query
// type (spec.md §4.10 step 6).
func ObjectClassName(rawJSON []byte) (string, error) {
	var probe struct {
		ObjectClassName string `json:"objectClassName"`
	}
	if err := json.Unmarshal(rawJSON, &probe); err != nil {
		return "", errs.Parse("malformed RDAP document", err, nil)
	}
	return probe.ObjectClassName, nil
}

func decodeCommon(doc rawDocument) (Common, []string) {
	c := Common{
		ObjectClass: doc.ObjectClassName,
		Handle:      doc.Handle,
		Status:      doc.Status,
	}

	for _, r := range doc.Remarks {
		c.Remarks = append(c.Remarks, flattenRemark(r))
	}

	for _, e := range doc.Events {
		event, dateRemark := decodeEvent(e)
		c.Events = append(c.Events, event)
		if dateRemark != "" {
			c.Remarks = append(c.Remarks, dateRemark)
		}
	}

	for _, l := range doc.Links {
		c.Links = append(c.Links, Link{Rel: l.Rel, Href: l.Href})
	}

	var truncationRemarks []string
	for _, e := range doc.Entities {
		entity, truncated := decodeEntity(e, 1)
		c.Entities = append(c.Entities, entity)
		if truncated {
			truncationRemarks = append(truncationRemarks, fmt.Sprintf("entity %q: nested entities truncated at depth %d", entity.Handle, maxEntityDepth))
		}
	}

	return c, truncationRemarks
}

// decodeEvent maps a raw event, passing eventDate through unchanged
// (spec.md §4.7: dates are already ISO-8601 per RFC 7483). A date that
// fails RFC3339 parsing does not abort normalization; it is kept
// verbatim in Event.Date and surfaced as a remark instead.
func decodeEvent(e rawEvent) (event Event, dateRemark string) {
	event = Event{Type: mapEventType(e.EventAction), Date: e.EventDate, Actor: e.EventActor}

	if e.EventDate != "" {
		if _, err := time.Parse(time.RFC3339, e.EventDate); err != nil {
			dateRemark = fmt.Sprintf("event %q has a malformed date: %q", event.Type, e.EventDate)
		}
	}

	return event, dateRemark
}

// mapEventType maps known eventAction values to the spec's EventType
// enum; unrecognized actions pass through verbatim (spec.md §4.7).
func mapEventType(action string) string {
	switch action {
	case "registration", "expiration", "last changed", "transfer", "deletion",
		"reregistration", "reinstantiation", "last update of RDAP database",
		"locked", "unlocked":
		return action
	default:
		return action
	}
}

func flattenRemark(r rawRemark) string {
	if r.Title != "" {
		return r.Title + ": " + strings.Join(r.Description, " ")
	}
	return strings.Join(r.Description, " ")
}

// decodeEntity recursively decodes an entity, truncating nested entities
// past maxEntityDepth and reporting whether truncation occurred.
func decodeEntity(e rawEntity, depth int) (Entity, bool) {
	entity := Entity{
		Handle: e.Handle,
		Roles:  e.Roles,
		Status: e.Status,
	}

	for _, p := range e.PublicIDs {
		entity.PublicIDs = append(entity.PublicIDs, PublicID{Type: p.Type, Identifier: p.Identifier})
	}
	for _, r := range e.Remarks {
		entity.Remarks = append(entity.Remarks, flattenRemark(r))
	}
	for _, l := range e.Links {
		entity.Links = append(entity.Links, Link{Rel: l.Rel, Href: l.Href})
	}
	for _, ev := range e.Events {
		event, dateRemark := decodeEvent(ev)
		entity.Events = append(entity.Events, event)
		if dateRemark != "" {
			entity.Remarks = append(entity.Remarks, dateRemark)
		}
	}

	if len(e.VCardArray) > 0 && string(e.VCardArray) != "null" {
		entity.VCardArray = mustUnmarshalAny(e.VCardArray)
		if card, err := jcard.NewJCard(e.VCardArray); err == nil {
			entity.VCard = vcardFromJCard(card)
		}
	}

	truncated := false
	if depth >= maxEntityDepth {
		if len(e.Entities) > 0 {
			truncated = true
		}
		return entity, truncated
	}

	for _, child := range e.Entities {
		childEntity, childTruncated := decodeEntity(child, depth+1)
		entity.Entities = append(entity.Entities, childEntity)
		if childTruncated {
			truncated = true
		}
	}

	return entity, truncated
}

func mustUnmarshalAny(raw json.RawMessage) any {
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}

// vcardFromJCard pulls the fields the normalized response exposes
// directly, using jcard's Get(name)/Values() accessors.
func vcardFromJCard(card *jcard.JCard) *VCard {
	v := &VCard{}

	if fn, ok := card.First("fn"); ok {
		v.FullName = fn.FirstValue()
	}
	for _, p := range card.Get("email") {
		v.Emails = append(v.Emails, p.Values()...)
	}
	for _, p := range card.Get("tel") {
		v.Phones = append(v.Phones, p.Values()...)
	}
	for _, p := range card.Get("adr") {
		v.Adr = append(v.Adr, p.Values()...)
	}

	return v
}

// extractRegistrar finds the first entity with role "registrar" and
// reads its display name (fn) and self link, per spec.md §4.7.
func extractRegistrar(entities []Entity) *Registrar {
	for _, e := range entities {
		for _, role := range e.Roles {
			if role != "registrar" {
				continue
			}

			reg := &Registrar{Handle: e.Handle}
			if e.VCard != nil {
				reg.Name = e.VCard.FullName
			}
			for _, l := range e.Links {
				if l.Rel == "self" {
					reg.URL = l.Href
					break
				}
			}
			return reg
		}
	}
	return nil
}

// dedupeNameservers takes ldhName (falling back to unicodeName), drops
// empties, lowercases, and dedupes preserving first occurrence, per
// spec.md §4.7 and the root NormalizedResponse invariant.
func dedupeNameservers(raw []rawNameserver) []string {
	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))

	for _, ns := range raw {
		name := ns.LDHName
		if name == "" {
			name = ns.UnicodeName
		}
		if name == "" {
			continue
		}
		name = strings.ToLower(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}
