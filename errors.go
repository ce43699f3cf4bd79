package quill

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress  = errors.New("quill: invalid address")
	ErrInvalidHeader   = errors.New("quill: invalid header")
	ErrAlreadyBuilt    = errors.New("quill: message already built")
	ErrMissingFrom     = errors.New("quill: from address is required")
	ErrNoRecipients    = errors.New("quill: at least one to, cc or bcc recipient is required")
	ErrMissingHostName = errors.New("quill: smtp host name is required")
	ErrInvalidHostName = errors.New("quill: invalid smtp host name")
)

// AddressError reports an address that failed to parse, naming the builder
// field it was meant for.
type AddressError struct {
	Field string // "from", "to", "cc", "bcc", "reply-to", "bounce"
	Input string
	Err   error
}

func (e *AddressError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("quill: invalid address %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("quill: invalid %s address %q: %v", e.Field, e.Input, e.Err)
}

func (e *AddressError) Unwrap() []error {
	return []error{ErrInvalidAddress, e.Err}
}

// HeaderError reports a header rejected by ValidateHeader.
type HeaderError struct {
	Name   string
	Reason string
}

func (e *HeaderError) Error() string {
	if e.Name == "" {
		return "quill: invalid header: " + e.Reason
	}
	return fmt.Sprintf("quill: invalid header %q: %s", e.Name, e.Reason)
}

func (e *HeaderError) Unwrap() error {
	return ErrInvalidHeader
}

// IsValidation reports whether err is caller input that failed validation.
// The builder state is unchanged when a mutator returns such an error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrInvalidHeader)
}

// IsState reports whether err signals builder misuse, such as a second Build.
func IsState(err error) bool {
	return errors.Is(err, ErrAlreadyBuilt)
}

// IsConfig reports whether err is a missing or malformed precondition of a
// terminal operation (Build or SessionConfig).
func IsConfig(err error) bool {
	return errors.Is(err, ErrMissingFrom) ||
		errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrMissingHostName) ||
		errors.Is(err, ErrInvalidHostName)
}
