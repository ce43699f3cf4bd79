package quill

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{name: "simple", input: "user@example.com", want: Address{LocalPart: "user", Domain: "example.com"}},
		{name: "dots in local", input: "a.b@c.org", want: Address{LocalPart: "a.b", Domain: "c.org"}},
		{name: "long labels", input: "abcdefghijklmnopqrst@abcdefghijklmnopqrst.com.bd", want: Address{LocalPart: "abcdefghijklmnopqrst", Domain: "abcdefghijklmnopqrst.com.bd"}},
		{name: "plus tag", input: "user+tag@example.com", want: Address{LocalPart: "user+tag", Domain: "example.com"}},
		{name: "surrounding whitespace trimmed", input: "  user@example.com\t", want: Address{LocalPart: "user", Domain: "example.com"}},
		{name: "display name", input: "Sender Name <sender@example.com>", want: Address{LocalPart: "sender", Domain: "example.com", DisplayName: "Sender Name"}},
		{name: "display name with quoted local", input: `Name <"john doe"@example.com>`, want: Address{LocalPart: `"john doe"`, Domain: "example.com", DisplayName: "Name"}},
		{name: "display name with quoted at", input: `Name <"a@b"@example.com>`, want: Address{LocalPart: `"a@b"`, Domain: "example.com", DisplayName: "Name"}},
		{name: "angle brackets only", input: "<sender@example.com>", want: Address{LocalPart: "sender", Domain: "example.com"}},
		{name: "quoted local with space", input: `"john doe"@example.com`, want: Address{LocalPart: `"john doe"`, Domain: "example.com"}},
		{name: "quoted local with at", input: `"a@b"@example.com`, want: Address{LocalPart: `"a@b"`, Domain: "example.com"}},
		{name: "ipv4 literal", input: "user@[192.168.1.1]", want: Address{LocalPart: "user", Domain: "[192.168.1.1]"}},
		{name: "ipv6 literal", input: "user@[IPv6:2001:db8::1]", want: Address{LocalPart: "user", Domain: "[IPv6:2001:db8::1]"}},
		{name: "idn domain", input: "user@münchen.de", want: Address{LocalPart: "user", Domain: "münchen.de"}},
		{name: "utf8 local", input: "用户@example.com", want: Address{LocalPart: "用户", Domain: "example.com"}},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "no at", input: "userexample.com", wantErr: true},
		{name: "two ats", input: "a@b@example.com", wantErr: true},
		{name: "empty local", input: "@example.com", wantErr: true},
		{name: "empty domain", input: "user@", wantErr: true},
		{name: "space in local", input: "us er@example.com", wantErr: true},
		{name: "space in domain", input: "user@exa mple.com", wantErr: true},
		{name: "tab in local", input: "us\ter@example.com", wantErr: true},
		{name: "leading dot in local", input: ".user@example.com", wantErr: true},
		{name: "consecutive dots", input: "user..name@example.com", wantErr: true},
		{name: "local too long", input: strings.Repeat("a", 65) + "@example.com", wantErr: true},
		{name: "empty domain label", input: "user@example..com", wantErr: true},
		{name: "domain label leading hyphen", input: "user@-example.com", wantErr: true},
		{name: "domain label too long", input: "user@" + strings.Repeat("a", 64) + ".com", wantErr: true},
		{name: "bad literal", input: "user@[999.1.1.1]", wantErr: true},
		{name: "unterminated quote", input: `"user@example.com`, wantErr: true},
		{name: "bad display form", input: "Name <user@example.com", wantErr: true},
		{name: "invalid utf8 local", input: "a\xffb@example.com", wantErr: true},
		{name: "invalid utf8 domain", input: "user@exa\xc3mple.com", wantErr: true},
		{name: "invalid utf8 display name", input: "N\xffme <user@example.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("ParseAddress(%q) error %v does not wrap ErrInvalidAddress", tt.input, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseAddress(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAddress_ErrorNamesInput(t *testing.T) {
	_, err := ParseAddress("not-an-address")

	var addrErr *AddressError
	if !errors.As(err, &addrErr) {
		t.Fatalf("expected *AddressError, got %T", err)
	}
	if addrErr.Input != "not-an-address" {
		t.Errorf("Input = %q, want %q", addrErr.Input, "not-an-address")
	}
	if !errors.Is(err, errMissingAt) {
		t.Errorf("expected cause errMissingAt, got %v", addrErr.Err)
	}
}

func TestAddress_Format(t *testing.T) {
	tests := []struct {
		addr Address
		want string
	}{
		{Address{LocalPart: "user", Domain: "example.com"}, "user@example.com"},
		{Address{LocalPart: "r", Domain: "example.com", DisplayName: "Reply To"}, `"Reply To" <r@example.com>`},
		{Address{}, ""},
	}

	for _, tt := range tests {
		if got := tt.addr.Format(); got != tt.want {
			t.Errorf("Format(%+v) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestAddress_WithDisplayName(t *testing.T) {
	a := Address{LocalPart: "user", Domain: "example.com", DisplayName: "Old"}
	b := a.WithDisplayName("New")

	if a.DisplayName != "Old" {
		t.Errorf("original modified: %q", a.DisplayName)
	}
	if b.DisplayName != "New" || b.String() != "user@example.com" {
		t.Errorf("unexpected copy %+v", b)
	}
}
