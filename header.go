package quill

import (
	"strings"

	"github.com/synqronlabs/quill/utils"
)

// Header is a single message header field.
type Header struct {
	// Name is the header field name (e.g., "X-Mailer").
	Name string `json:"name"`
	// Value is the unfolded header field value. May be empty.
	Value string `json:"value"`
}

// Headers is an insertion-ordered set of header fields keyed by exact name.
// Setting an existing name replaces its value in place, so iteration order
// always follows first insertion.
type Headers []Header

// Get returns the value stored under name and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	if i := h.index(name); i >= 0 {
		return h[i].Value, true
	}
	return "", false
}

// Has reports whether a header named name is present.
func (h Headers) Has(name string) bool {
	return h.index(name) >= 0
}

// Set upserts name. The caller is expected to have validated the pair.
func (h *Headers) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		(*h)[i].Value = value
		return
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Names returns header names in iteration order.
func (h Headers) Names() []string {
	names := make([]string, len(h))
	for i, hdr := range h {
		names[i] = hdr.Name
	}
	return names
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return Headers{}
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// getFold is Get with case-insensitive name matching, for the few fields
// whose meaning the builder depends on.
func (h Headers) getFold(name string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

func (h Headers) index(name string) int {
	for i, hdr := range h {
		if hdr.Name == name {
			return i
		}
	}
	return -1
}

// ValidateHeader checks a header pair before it is stored.
// The name must be a non-empty RFC 5322 field name. The value may be empty
// but must not contain CR, LF or NUL.
func ValidateHeader(name, value string) error {
	if name == "" {
		return &HeaderError{Reason: "name is empty"}
	}
	if !utils.IsFieldName(name) {
		return &HeaderError{Name: name, Reason: "name must be printable ASCII without colon"}
	}
	if utils.ContainsLineBreak(value) {
		return &HeaderError{Name: name, Reason: "value contains a line break or NUL"}
	}
	return nil
}
