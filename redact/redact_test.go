package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdapkit/rdap/normalize"
)

func sampleDomain() *normalize.Domain {
	return &normalize.Domain{
		Common: normalize.Common{
			ObjectClass: "domain",
			Entities: []normalize.Entity{
				{
					Handle: "REG-1",
					Roles:  []string{"registrar"},
					VCard: &normalize.VCard{
						FullName: "Example Registrar",
						Emails:   []string{"abuse@example-registry.test"},
						Phones:   []string{"+1-555-555-1234"},
						Adr:      []string{"123 Example St"},
					},
					VCardArray: []any{
						"vcard",
						[]any{
							[]any{"fn", map[string]any{}, "text", "Example Registrar"},
							[]any{"email", map[string]any{}, "text", "abuse@example-registry.test"},
						},
					},
					Entities: []normalize.Entity{
						{
							Handle: "NESTED-1",
							VCard:  &normalize.VCard{Emails: []string{"nested@example-registry.test"}},
						},
					},
				},
			},
		},
		LDHName: "example.com",
	}
}

func TestDomain_RedactionDisabled_LeavesValuesIntact(t *testing.T) {
	d := sampleDomain()
	out := Domain(d, Policy{Enabled: false})

	require.NotNil(t, out)
	assert.Equal(t, "abuse@example-registry.test", out.Entities[0].VCard.Emails[0])
	assert.NotSame(t, d, out, "must be a distinct copy even when disabled")
}

func TestDomain_RedactionEnabled_MasksEmailTelAdr(t *testing.T) {
	d := sampleDomain()
	out := Domain(d, DefaultPolicy())

	require.NotNil(t, out)
	e := out.Entities[0]
	assert.Equal(t, "[REDACTED]", e.VCard.Emails[0])
	assert.Equal(t, "[REDACTED]", e.VCard.Phones[0])
	assert.Equal(t, "[REDACTED]", e.VCard.Adr[0])
	assert.Equal(t, "Example Registrar", e.VCard.FullName, "fn is not a redactable class")
}

func TestDomain_RedactsNestedEntitiesAtAnyDepth(t *testing.T) {
	d := sampleDomain()
	out := Domain(d, DefaultPolicy())

	nested := out.Entities[0].Entities[0]
	assert.Equal(t, "[REDACTED]", nested.VCard.Emails[0])
}

func TestDomain_DoesNotMutateOriginal(t *testing.T) {
	d := sampleDomain()
	Domain(d, DefaultPolicy())

	assert.Equal(t, "abuse@example-registry.test", d.Entities[0].VCard.Emails[0])
	assert.Equal(t, "nested@example-registry.test", d.Entities[0].Entities[0].VCard.Emails[0])
}

func TestDomain_RedactsRawVCardArray(t *testing.T) {
	d := sampleDomain()
	out := Domain(d, DefaultPolicy())

	top := out.Entities[0].VCardArray.([]any)
	props := top[1].([]any)

	var emailValue any
	for _, p := range props {
		tuple := p.([]any)
		if tuple[0] == "email" {
			emailValue = tuple[3]
		}
	}
	assert.Equal(t, "[REDACTED]", emailValue)

	// original untouched
	origProps := d.Entities[0].VCardArray.([]any)[1].([]any)
	for _, p := range origProps {
		tuple := p.([]any)
		if tuple[0] == "email" {
			assert.Equal(t, "abuse@example-registry.test", tuple[3])
		}
	}
}

func TestDomain_FineGrainedFlags(t *testing.T) {
	d := sampleDomain()
	out := Domain(d, Policy{Enabled: true, RedactEmails: true})

	e := out.Entities[0]
	assert.Equal(t, "[REDACTED]", e.VCard.Emails[0])
	assert.Equal(t, "+1-555-555-1234", e.VCard.Phones[0], "phones not redacted when flag is off")
}

func TestDomain_NilInput(t *testing.T) {
	assert.Nil(t, Domain(nil, DefaultPolicy()))
}
