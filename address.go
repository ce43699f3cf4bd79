package quill

import (
	"errors"
	"net"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"

	"github.com/synqronlabs/quill/utils"
)

var (
	errEmptyAddress   = errors.New("empty address")
	errMissingAt      = errors.New("missing @ separator")
	errMultipleAt     = errors.New("more than one unquoted @")
	errWhitespace     = errors.New("address contains whitespace")
	errEmptyLocalPart = errors.New("empty local-part")
	errEmptyDomain    = errors.New("empty domain")
	errInvalidUTF8    = errors.New("address is not valid UTF-8")
)

// Address is a parsed mailbox: local-part@domain with an optional display name.
type Address struct {
	// LocalPart is the portion before the @ sign.
	// May contain UTF-8 characters (RFC 6531).
	LocalPart string `json:"local_part"`

	// Domain is the portion after the @ sign, as written by the caller.
	// Internationalized domains keep their U-label form.
	Domain string `json:"domain"`

	// DisplayName is an optional human-readable name.
	DisplayName string `json:"display_name,omitempty"`
}

// String returns the address in "local-part@domain" form.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return a.LocalPart + "@" + a.Domain
}

// Format returns the address as it would appear in a header, including the
// display name when one is set.
func (a Address) Format() string {
	if a.DisplayName == "" {
		return a.String()
	}
	return (&mail.Address{Name: a.DisplayName, Address: a.String()}).String()
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.LocalPart == "" && a.Domain == ""
}

// WithDisplayName returns a copy of a carrying the given display name.
func (a Address) WithDisplayName(name string) Address {
	a.DisplayName = name
	return a
}

// AddressValidator turns raw address strings into Addresses.
type AddressValidator interface {
	Parse(raw string) (Address, error)
}

// DefaultAddressValidator validates address syntax with ParseAddress.
type DefaultAddressValidator struct{}

// Parse implements AddressValidator.
func (DefaultAddressValidator) Parse(raw string) (Address, error) {
	return ParseAddress(raw)
}

// ParseAddress parses an address string into an Address.
// Both bare "user@domain" and RFC 5322 "Name <user@domain>" forms are accepted.
// Only syntax is checked; no DNS or deliverability checks are made.
func ParseAddress(raw string) (Address, error) {
	addr, err := parseAddress(raw)
	if err != nil {
		return Address{}, &AddressError{Input: raw, Err: err}
	}
	return addr, nil
}

func parseAddress(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Address{}, errEmptyAddress
	}
	if !utf8.ValidString(s) {
		return Address{}, errInvalidUTF8
	}

	var name string
	spec := s
	if strings.ContainsAny(s, "<>") {
		parsed, err := mail.ParseAddress(s)
		if err != nil {
			return Address{}, err
		}
		name = parsed.Name
		spec = requoteLocalPart(parsed.Address)
	}

	local, domain, err := splitAddrSpec(spec)
	if err != nil {
		return Address{}, err
	}
	if err := validateLocalPart(local); err != nil {
		return Address{}, err
	}
	if err := validateDomain(domain); err != nil {
		return Address{}, err
	}

	return Address{LocalPart: local, Domain: domain, DisplayName: name}, nil
}

// splitAddrSpec splits on the single unquoted @. Whitespace is only
// tolerated inside a quoted local-part.
func splitAddrSpec(s string) (local, domain string, err error) {
	at := -1
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '@':
			if at >= 0 {
				return "", "", errMultipleAt
			}
			at = i
		}
	}
	if inQuote {
		return "", "", errors.New("unterminated quoted local-part")
	}
	if at < 0 {
		return "", "", errMissingAt
	}

	local, domain = s[:at], s[at+1:]
	if local == "" {
		return "", "", errEmptyLocalPart
	}
	if domain == "" {
		return "", "", errEmptyDomain
	}
	if (!isQuoted(local) && utils.ContainsSpace(local)) || utils.ContainsSpace(domain) {
		return "", "", errWhitespace
	}
	return local, domain, nil
}

// requoteLocalPart restores the quoting net/mail strips from a quoted
// local-part, so "john doe"@example.com keeps its quotes.
func requoteLocalPart(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return addr
	}
	local := addr[:at]
	if local == "" || isDotAtom(local) {
		return addr
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(local); i++ {
		if local[i] == '"' || local[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(local[i])
	}
	b.WriteByte('"')
	return b.String() + addr[at:]
}

func isDotAtom(s string) bool {
	if s[0] == '.' || s[len(s)-1] == '.' || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if r != '.' && !isAtext(r) {
			return false
		}
	}
	return true
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// validateLocalPart checks the local-part per RFC 5321 §4.1.2.
// Accepts dot-atom and quoted-string forms.
func validateLocalPart(local string) error {
	if len(local) > 64 { // RFC 5321 §4.5.3.1.1
		return errors.New("local-part too long")
	}
	if isQuoted(local) {
		return validateQuotedLocalPart(local[1 : len(local)-1])
	}

	if local[0] == '.' || local[len(local)-1] == '.' {
		return errors.New("local-part cannot start or end with a dot")
	}
	if strings.Contains(local, "..") {
		return errors.New("local-part cannot contain consecutive dots")
	}
	for _, r := range local {
		if r != '.' && !isAtext(r) {
			return errors.New("invalid character in local-part")
		}
	}
	return nil
}

// isAtext checks for RFC 5322 atext, extended with UTF-8 per RFC 6532.
func isAtext(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
		return true
	}
	switch r {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '/', '=', '?', '^', '_', '`', '{', '|', '}', '~':
		return true
	}
	return r > 127
}

func validateQuotedLocalPart(s string) error {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
			if i >= len(s) {
				return errors.New("trailing backslash in quoted local-part")
			}
		case '"':
			return errors.New("unescaped quote in quoted local-part")
		case '\r', '\n':
			return errors.New("line break in quoted local-part")
		}
	}
	return nil
}

// validateDomain checks the domain per RFC 5321 §4.1.2.
// Accepts DNS hostnames (including IDNs) and IPv4/IPv6 address literals.
func validateDomain(domain string) error {
	if len(domain) > 255 { // RFC 5321 §4.5.3.1.2
		return errors.New("domain too long")
	}

	if domain[0] == '[' {
		if domain[len(domain)-1] != ']' {
			return errors.New("unclosed address literal")
		}
		literal := strings.TrimPrefix(domain[1:len(domain)-1], "IPv6:")
		if net.ParseIP(literal) == nil {
			return errors.New("invalid address literal")
		}
		return nil
	}

	ascii := domain
	if utils.ContainsNonASCII(domain) {
		var err error
		ascii, err = idna.Lookup.ToASCII(domain)
		if err != nil {
			return errors.New("invalid internationalized domain: " + err.Error())
		}
	}
	return validateHostname(ascii)
}

// validateHostname checks an ASCII host name label by label. It is shared by
// address domains and SMTP host names.
func validateHostname(host string) error {
	if host == "" {
		return errors.New("empty host name")
	}
	if host[0] == '.' || host[len(host)-1] == '.' {
		return errors.New("domain cannot start or end with a dot")
	}

	for label := range strings.SplitSeq(host, ".") {
		if label == "" {
			return errors.New("empty label in domain")
		}
		if len(label) > 63 {
			return errors.New("domain label too long")
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return errors.New("domain label cannot start or end with hyphen")
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return errors.New("invalid character in domain")
			}
		}
	}

	if _, ok := dns.IsDomainName(host); !ok {
		return errors.New("invalid domain name")
	}
	return nil
}
