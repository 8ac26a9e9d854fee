package jcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJCard_Errors(t *testing.T) {
	cases := map[string]string{
		"invalid json":             `not json`,
		"not a 2-element array":    `["vcard"]`,
		"missing vcard label":      `["vcalendar", []]`,
		"properties not an array":  `["vcard", "nope"]`,
		"property too short":       `["vcard", [["fn", {}]]]`,
		"property name not string": `["vcard", [[1, {}, "text", "x"]]]`,
		"property type not string": `["vcard", [["fn", {}, 1, "x"]]]`,
		"parameters not an object": `["vcard", [["fn", [], "text", "x"]]]`,
		"value nested too deep":    `["vcard", [["fn", {}, "text", [[[["x"]]]]]]]`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			j, err := NewJCard([]byte(doc))
			assert.Nil(t, j)
			assert.Error(t, err)
		})
	}
}

func TestNewJCard_Example(t *testing.T) {
	doc := `["vcard", [
		["version", {}, "text", "4.0"],
		["fn", {}, "text", "Joe Appleseed"],
		["n", {}, "text", ["Appleseed", "Joe", "", "", ["ing. jr", "M.Sc."]]],
		["tel", {"type": ["work", "voice"], "pref": ["1"]}, "uri", "tel:+1-555-555-1234;ext=555"],
		["email", {}, "text", "joe@example.com"]
	]]`

	j, err := NewJCard([]byte(doc))
	require.NoError(t, err)
	require.Len(t, j.Properties, 5)

	version, ok := j.First("version")
	require.True(t, ok)
	assert.Equal(t, "4.0", version.FirstValue())

	n := j.Get("n")
	require.Len(t, n, 1)
	assert.Equal(t, []string{"Appleseed", "Joe", "", "", "ing. jr", "M.Sc."}, n[0].Values())

	tel := j.Get("tel")
	require.Len(t, tel, 1)
	assert.Equal(t, []string{"work", "voice"}, tel[0].Parameters["type"])
	assert.Equal(t, "tel:+1-555-555-1234;ext=555", tel[0].FirstValue())

	fn, ok := j.First("fn")
	require.True(t, ok)
	assert.Equal(t, "Joe Appleseed", fn.FirstValue())

	_, ok = j.First("adr")
	assert.False(t, ok)
}

func TestNewJCard_MixedDatatypes(t *testing.T) {
	doc := `["vcard", [
		["mixed", {}, "text", ["abc", true, 42, null, ["def", false, 43]]]
	]]`

	j, err := NewJCard([]byte(doc))
	require.NoError(t, err)

	mixed := j.Get("mixed")
	require.Len(t, mixed, 1)

	want := []string{"abc", "true", "4.2e+01", "", "def", "false", "4.3e+01"}
	assert.Equal(t, want, mixed[0].Values())
}

func TestProperty_String(t *testing.T) {
	j, err := NewJCard([]byte(`["vcard", [["fn", {}, "text", "Joe"]]]`))
	require.NoError(t, err)

	s := j.String()
	assert.Contains(t, s, "fn")
	assert.Contains(t, s, "Joe")
}
