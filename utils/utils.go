package utils

import (
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// ContainsNonASCII checks if a string contains any non-ASCII characters (bytes > 127).
// This works for both string validation (addresses, headers) and message content validation.
func ContainsNonASCII(s string) bool {
	for _, v := range s {
		if v >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

// ContainsSpace reports whether s contains any Unicode whitespace.
func ContainsSpace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// ContainsLineBreak reports whether s contains CR, LF or NUL, any of which
// would let a value escape its header line.
func ContainsLineBreak(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r', '\n', 0:
			return true
		}
	}
	return false
}

// IsFieldName reports whether s is a valid RFC 5322 field name:
// one or more printable US-ASCII characters excluding colon.
func IsFieldName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 33 || c > 126 || c == ':' {
			return false
		}
	}
	return true
}

// GenerateID creates a unique, lexically sortable identifier (ULID).
func GenerateID() string {
	return ulid.Make().String()
}
