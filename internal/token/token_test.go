package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		raw  string
		want Token
	}{
		{"admin:main", Token{Namespace: "admin", Section: "main"}},
		{"admin", Token{Namespace: "admin", Section: "main"}},
		{"menu:contact", Token{Namespace: "menu", Section: "contact"}},
		{"admin:cases:list:2", Token{Namespace: "admin", Section: "cases", Action: "list", Payload: "2"}},
		{"admin:cases:edit_title:4|0", Token{Namespace: "admin", Section: "cases", Action: "edit_title", Payload: "4|0"}},
		{"admin:cases:cta_type:url:4|1", Token{Namespace: "admin", Section: "cases", Action: "cta_type", Variant: "url", Payload: "4|1"}},
		{"menu:cases:review_cta:9|3|12", Token{Namespace: "menu", Section: "cases", Action: "review_cta", Payload: "9|3|12"}},
	}
	for _, tt := range tests {
		got, err := Decode(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode("")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRoundTrip(t *testing.T) {
	raws := []string{
		"admin:main",
		"admin:stats",
		"admin:settings:maint_toggle",
		"admin:cases:new",
		"admin:cases:list:5",
		"admin:cases:view:12|3",
		"admin:cases:cta_type:contact:12|3",
		"menu:cases:review_cta:12|3|7",
	}
	for _, raw := range raws {
		tok, err := Decode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, Encode(tok), raw)
	}
}

func TestParseEntity(t *testing.T) {
	ref, err := ParseEntity("42|3")
	require.NoError(t, err)
	assert.Equal(t, EntityRef{CaseID: 42, ReturnPage: 3}, ref)
}

func TestParseEntityFailsClosed(t *testing.T) {
	for _, payload := range []string{"", "42", "abc|0", "42|x", "|", "0|0", "-1|0"} {
		_, err := ParseEntity(payload)
		assert.ErrorIs(t, err, ErrMalformed, "payload %q", payload)
	}
}

func TestParseTriple(t *testing.T) {
	ref, variant, err := ParseTriple("9|2|14")
	require.NoError(t, err)
	assert.Equal(t, EntityRef{CaseID: 9, ReturnPage: 2}, ref)
	assert.Equal(t, 14, variant)

	_, _, err = ParseTriple("9|2")
	assert.Error(t, err)
	_, _, err = ParseTriple("9|2|x")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage("")
	require.NoError(t, err)
	assert.Equal(t, 0, page)

	page, err = ParsePage("7")
	require.NoError(t, err)
	assert.Equal(t, 7, page)

	page, err = ParsePage("-2")
	require.NoError(t, err)
	assert.Equal(t, 0, page)

	_, err = ParsePage("seven")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestFormatEntity(t *testing.T) {
	assert.Equal(t, "42|0", FormatEntity(42, 0))
	assert.Equal(t, "42|3|9", FormatTriple(42, 3, 9))
}
