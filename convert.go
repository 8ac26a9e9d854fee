package rdap

import "github.com/rdapkit/rdap/normalize"

// This file bridges the root package's exported response shapes and the
// normalize package's internal shapes, so the orchestrator (which needs
// the typed DomainResponse/IPResponse/ASNResponse for callers) can still
// hand the redact package plain normalize.* values, keeping redact free
// of a dependency on the root package (which would be a cycle: rdap
// already imports normalize).

func toEntities(es []RDAPEntity) []normalize.Entity {
	if es == nil {
		return nil
	}
	out := make([]normalize.Entity, len(es))
	for i, e := range es {
		out[i] = toEntity(e)
	}
	return out
}

func toEntity(e RDAPEntity) normalize.Entity {
	roles := make([]string, len(e.Roles))
	for i, r := range e.Roles {
		roles[i] = string(r)
	}

	ne := normalize.Entity{
		Handle:     e.Handle,
		Roles:      roles,
		VCardArray: e.VCardArray,
		Status:     e.Status,
		Entities:   toEntities(e.Entities),
	}

	if e.VCard != nil {
		ne.VCard = &normalize.VCard{
			FullName: e.VCard.FullName,
			Emails:   e.VCard.Emails,
			Phones:   e.VCard.Phones,
			Adr:      e.VCard.Adr,
		}
	}

	for _, p := range e.PublicIDs {
		ne.PublicIDs = append(ne.PublicIDs, normalize.PublicID{Type: p.Type, Identifier: p.Identifier})
	}
	ne.Remarks = e.Remarks
	for _, l := range e.Links {
		ne.Links = append(ne.Links, normalize.Link{Rel: l.Rel, Href: l.Href})
	}
	for _, ev := range e.Events {
		ne.Events = append(ne.Events, normalize.Event{Type: string(ev.Type), Date: ev.Date, Actor: ev.Actor})
	}

	return ne
}

func fromEntities(es []normalize.Entity) []RDAPEntity {
	if es == nil {
		return nil
	}
	out := make([]RDAPEntity, len(es))
	for i, e := range es {
		out[i] = fromEntity(e)
	}
	return out
}

func fromEntity(e normalize.Entity) RDAPEntity {
	roles := make([]EntityRole, len(e.Roles))
	for i, r := range e.Roles {
		roles[i] = EntityRole(r)
	}

	re := RDAPEntity{
		Handle:     e.Handle,
		Roles:      roles,
		VCardArray: e.VCardArray,
		Status:     e.Status,
		Entities:   fromEntities(e.Entities),
		Remarks:    e.Remarks,
	}

	if e.VCard != nil {
		re.VCard = &VCard{
			FullName: e.VCard.FullName,
			Emails:   e.VCard.Emails,
			Phones:   e.VCard.Phones,
			Adr:      e.VCard.Adr,
		}
	}

	for _, p := range e.PublicIDs {
		re.PublicIDs = append(re.PublicIDs, PublicID{Type: p.Type, Identifier: p.Identifier})
	}
	for _, l := range e.Links {
		re.Links = append(re.Links, RDAPLink{Rel: l.Rel, Href: l.Href})
	}
	for _, ev := range e.Events {
		re.Events = append(re.Events, RDAPEvent{Type: EventType(ev.Type), Date: ev.Date, Actor: ev.Actor})
	}

	return re
}

func toEvents(es []RDAPEvent) []normalize.Event {
	if es == nil {
		return nil
	}
	out := make([]normalize.Event, len(es))
	for i, e := range es {
		out[i] = normalize.Event{Type: string(e.Type), Date: e.Date, Actor: e.Actor}
	}
	return out
}

func fromEvents(es []normalize.Event) []RDAPEvent {
	if es == nil {
		return nil
	}
	out := make([]RDAPEvent, len(es))
	for i, e := range es {
		out[i] = RDAPEvent{Type: EventType(e.Type), Date: e.Date, Actor: e.Actor}
	}
	return out
}

func toLinks(ls []RDAPLink) []normalize.Link {
	if ls == nil {
		return nil
	}
	out := make([]normalize.Link, len(ls))
	for i, l := range ls {
		out[i] = normalize.Link{Rel: l.Rel, Href: l.Href}
	}
	return out
}

func fromLinks(ls []normalize.Link) []RDAPLink {
	if ls == nil {
		return nil
	}
	out := make([]RDAPLink, len(ls))
	for i, l := range ls {
		out[i] = RDAPLink{Rel: l.Rel, Href: l.Href}
	}
	return out
}

func toNormalizeDomain(r *DomainResponse) *normalize.Domain {
	var registrar *normalize.Registrar
	if r.Registrar != nil {
		registrar = &normalize.Registrar{Name: r.Registrar.Name, Handle: r.Registrar.Handle, URL: r.Registrar.URL}
	}
	return &normalize.Domain{
		Common: normalize.Common{
			ObjectClass: r.ObjectClass,
			Handle:      r.Handle,
			Status:      r.Status,
			Entities:    toEntities(r.Entities),
			Events:      toEvents(r.Events),
			Links:       toLinks(r.Links),
			Remarks:     r.Remarks,
		},
		LDHName:     r.LDHName,
		UnicodeName: r.UnicodeName,
		Nameservers: r.Nameservers,
		Registrar:   registrar,
	}
}

func fromNormalizeDomain(d *normalize.Domain, template *DomainResponse) *DomainResponse {
	out := *template
	out.ObjectClass = d.ObjectClass
	out.Handle = d.Handle
	out.Status = d.Status
	out.Entities = fromEntities(d.Entities)
	out.Events = fromEvents(d.Events)
	out.Links = fromLinks(d.Links)
	out.Remarks = d.Remarks
	out.LDHName = d.LDHName
	out.UnicodeName = d.UnicodeName
	out.Nameservers = d.Nameservers
	if d.Registrar != nil {
		out.Registrar = &Registrar{Name: d.Registrar.Name, Handle: d.Registrar.Handle, URL: d.Registrar.URL}
	} else {
		out.Registrar = nil
	}
	return &out
}

func toNormalizeIP(r *IPResponse) *normalize.IP {
	return &normalize.IP{
		Common: normalize.Common{
			ObjectClass: r.ObjectClass,
			Handle:      r.Handle,
			Status:      r.Status,
			Entities:    toEntities(r.Entities),
			Events:      toEvents(r.Events),
			Links:       toLinks(r.Links),
			Remarks:     r.Remarks,
		},
		StartAddress: r.StartAddress,
		EndAddress:   r.EndAddress,
		IPVersion:    r.IPVersion,
		Name:         r.Name,
		Type:         r.Type,
		Country:      r.Country,
	}
}

func fromNormalizeIP(ip *normalize.IP, template *IPResponse) *IPResponse {
	out := *template
	out.ObjectClass = ip.ObjectClass
	out.Handle = ip.Handle
	out.Status = ip.Status
	out.Entities = fromEntities(ip.Entities)
	out.Events = fromEvents(ip.Events)
	out.Links = fromLinks(ip.Links)
	out.Remarks = ip.Remarks
	out.StartAddress = ip.StartAddress
	out.EndAddress = ip.EndAddress
	out.IPVersion = ip.IPVersion
	out.Name = ip.Name
	out.Type = ip.Type
	out.Country = ip.Country
	return &out
}

func toNormalizeASN(r *ASNResponse) *normalize.ASN {
	return &normalize.ASN{
		Common: normalize.Common{
			ObjectClass: r.ObjectClass,
			Handle:      r.Handle,
			Status:      r.Status,
			Entities:    toEntities(r.Entities),
			Events:      toEvents(r.Events),
			Links:       toLinks(r.Links),
			Remarks:     r.Remarks,
		},
		StartAutnum: r.StartAutnum,
		EndAutnum:   r.EndAutnum,
		Name:        r.Name,
		Type:        r.Type,
		Country:     r.Country,
	}
}

func fromNormalizeASN(a *normalize.ASN, template *ASNResponse) *ASNResponse {
	out := *template
	out.ObjectClass = a.ObjectClass
	out.Handle = a.Handle
	out.Status = a.Status
	out.Entities = fromEntities(a.Entities)
	out.Events = fromEvents(a.Events)
	out.Links = fromLinks(a.Links)
	out.Remarks = a.Remarks
	out.StartAutnum = a.StartAutnum
	out.EndAutnum = a.EndAutnum
	out.Name = a.Name
	out.Type = a.Type
	out.Country = a.Country
	return &out
}
