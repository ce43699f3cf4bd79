package quill

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name    string
		hdrName string
		value   string
		wantErr bool
	}{
		{name: "valid", hdrName: "X-HEADER", value: "testValue"},
		{name: "empty value allowed", hdrName: "X-Empty", value: ""},
		{name: "utf8 value allowed", hdrName: "X-Note", value: "größe"},
		{name: "empty name", hdrName: "", value: "testValue", wantErr: true},
		{name: "space in name", hdrName: "X Header", value: "v", wantErr: true},
		{name: "colon in name", hdrName: "X-Header:", value: "v", wantErr: true},
		{name: "non-ascii name", hdrName: "X-Grüße", value: "v", wantErr: true},
		{name: "crlf injection", hdrName: "X-Header", value: "v\r\nBcc: victim@example.com", wantErr: true},
		{name: "bare lf", hdrName: "X-Header", value: "v\n", wantErr: true},
		{name: "nul", hdrName: "X-Header", value: "v\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(tt.hdrName, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateHeader(%q, %q) error = %v, wantErr %v", tt.hdrName, tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidHeader) {
				t.Errorf("error %v does not wrap ErrInvalidHeader", err)
			}
		})
	}
}

func TestHeaders_SetKeepsFirstPosition(t *testing.T) {
	var h Headers
	h.Set("X-One", "1")
	h.Set("X-Two", "2")
	h.Set("X-One", "updated")

	if got, want := h.Names(), []string{"X-One", "X-Two"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if v, ok := h.Get("X-One"); !ok || v != "updated" {
		t.Errorf("Get(X-One) = %q, %v", v, ok)
	}
	if len(h) != 2 {
		t.Errorf("expected 2 entries, got %d", len(h))
	}
}

func TestHeaders_ExactNameMatch(t *testing.T) {
	var h Headers
	h.Set("X-Header", "a")

	if h.Has("x-header") {
		t.Error("lookup should be case-sensitive")
	}
	if _, ok := h.Get("X-Missing"); ok {
		t.Error("expected missing header")
	}
}

func TestHeaders_Clone(t *testing.T) {
	h := Headers{{Name: "X-A", Value: "1"}}
	c := h.Clone()
	c.Set("X-A", "2")

	if v, _ := h.Get("X-A"); v != "1" {
		t.Errorf("clone shares storage with original: %q", v)
	}
	if got := Headers(nil).Clone(); got == nil || len(got) != 0 {
		t.Errorf("Clone of nil = %#v, want empty", got)
	}
}
