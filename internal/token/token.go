// Package token encodes and decodes the callback tokens carried by inline
// keyboard buttons. A token addresses one operator/visitor intent:
//
//	<namespace>:<section>[:<action>[:<variant>]:<payload>]
//
// e.g. "admin:cases:edit_title:4|0" or "menu:cases:review_cta:4|0|12".
// The primary delimiter is ':'; the payload uses '|' for the
// (id, page[, variant]) tuple. This package is the single encode/decode
// boundary for that grammar — nothing else parses these strings.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Primary separates namespace/section/action/payload.
	Primary = ":"
	// Secondary separates the fields of a payload tuple.
	Secondary = "|"
)

// Namespaces understood by the dispatcher.
const (
	NamespaceAdmin = "admin"
	NamespaceMenu  = "menu"
)

// ErrMalformed is returned for tokens whose numeric sub-fields do not parse.
// Decoding fails closed: a bad entity id is an error, never a zero id.
var ErrMalformed = errors.New("malformed token")

// Token is a decoded callback token. Section defaults to "main" when the
// token carries only a namespace. Variant is non-empty only for the
// five-part form (currently cta_type). Payload is kept opaque here; use
// the Parse* helpers to read its tuple forms.
type Token struct {
	Namespace string
	Section   string
	Action    string
	Variant   string
	Payload   string
}

// Decode splits a raw callback string into a Token. Missing optional parts
// stay empty (Section falls back to "main"), so callers can distinguish
// "absent" from "zero".
func Decode(raw string) (Token, error) {
	if raw == "" {
		return Token{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	parts := strings.SplitN(raw, Primary, 5)
	t := Token{Namespace: parts[0], Section: "main"}
	if t.Namespace == "" {
		return Token{}, fmt.Errorf("%w: missing namespace in %q", ErrMalformed, raw)
	}
	if len(parts) > 1 {
		t.Section = parts[1]
	}
	if len(parts) > 2 {
		t.Action = parts[2]
	}
	switch len(parts) {
	case 4:
		t.Payload = parts[3]
	case 5:
		t.Variant = parts[3]
		t.Payload = parts[4]
	}
	return t, nil
}

// Encode builds the wire string for a token. Empty trailing fields are
// omitted so Encode(Decode(s)) round-trips for every shape a rendered
// control can emit.
func Encode(t Token) string {
	parts := []string{t.Namespace}
	if t.Section != "" {
		parts = append(parts, t.Section)
	}
	if t.Action != "" {
		parts = append(parts, t.Action)
	}
	if t.Variant != "" {
		parts = append(parts, t.Variant)
	}
	if t.Payload != "" {
		parts = append(parts, t.Payload)
	}
	return strings.Join(parts, Primary)
}

// EntityRef is the (case id, return page) pair carried by most case-scoped
// actions.
type EntityRef struct {
	CaseID     int64
	ReturnPage int
}

// FormatEntity renders an (id, page) payload.
func FormatEntity(caseID int64, page int) string {
	return strconv.FormatInt(caseID, 10) + Secondary + strconv.Itoa(page)
}

// FormatTriple renders an (id, page, variant) payload.
func FormatTriple(caseID int64, page, variant int) string {
	return FormatEntity(caseID, page) + Secondary + strconv.Itoa(variant)
}

// ParseEntity reads an "id|page" payload. Both fields are parsed strictly;
// a case id below 1 is rejected here rather than handed downstream.
func ParseEntity(payload string) (EntityRef, error) {
	idStr, pageStr, ok := strings.Cut(payload, Secondary)
	if !ok {
		return EntityRef{}, fmt.Errorf("%w: payload %q lacks %q", ErrMalformed, payload, Secondary)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return EntityRef{}, fmt.Errorf("%w: case id %q", ErrMalformed, idStr)
	}
	if id <= 0 {
		return EntityRef{}, fmt.Errorf("%w: case id %d out of range", ErrMalformed, id)
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return EntityRef{}, fmt.Errorf("%w: page %q", ErrMalformed, pageStr)
	}
	return EntityRef{CaseID: id, ReturnPage: page}, nil
}

// ParseTriple reads an "id|page|variant" payload (review CTA tokens).
func ParseTriple(payload string) (EntityRef, int, error) {
	head, variantStr, ok := cutLast(payload)
	if !ok {
		return EntityRef{}, 0, fmt.Errorf("%w: payload %q is not a triple", ErrMalformed, payload)
	}
	ref, err := ParseEntity(head)
	if err != nil {
		return EntityRef{}, 0, err
	}
	variant, err := strconv.Atoi(variantStr)
	if err != nil {
		return EntityRef{}, 0, fmt.Errorf("%w: variant %q", ErrMalformed, variantStr)
	}
	return ref, variant, nil
}

// ParsePage reads a bare page-number payload. An empty payload means page 0
// (list openers carry no page on first entry).
func ParsePage(payload string) (int, error) {
	if payload == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: page %q", ErrMalformed, payload)
	}
	if page < 0 {
		page = 0
	}
	return page, nil
}

func cutLast(s string) (before, after string, found bool) {
	i := strings.LastIndex(s, Secondary)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}
