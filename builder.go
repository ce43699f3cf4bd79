package quill

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/synqronlabs/quill/utils"
)

// EmailMessageBuilder accumulates the fields of one outbound message and the
// transport settings used to derive its SessionConfig.
//
// Every mutator that can fail validates its input first and leaves the
// builder untouched on error. Build succeeds at most once per builder.
//
// A builder is owned by a single goroutine; it is not safe for concurrent use.
type EmailMessageBuilder struct {
	validator AddressValidator
	logger    *slog.Logger
	now       func() time.Time

	from     Address
	to       []Address
	cc       []Address
	bcc      []Address
	replyTo  []Address
	headers  Headers
	subject  string
	sentDate time.Time
	body     Body
	charset  string

	hostName                string
	smtpPort                int
	sslSMTPPort             int
	sslOnConnect            bool
	startTLSEnabled         bool
	startTLSRequired        bool
	sslCheckServerIdentity  bool
	bounceAddress           *Address
	socketConnectionTimeout time.Duration
	socketTimeout           time.Duration
	session                 *SessionConfig

	built bool
}

// BuilderOption configures an EmailMessageBuilder.
type BuilderOption func(*EmailMessageBuilder)

// WithLogger sets the logger used for build and session diagnostics.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *EmailMessageBuilder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the time source used to date messages that have no sent date.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *EmailMessageBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithAddressValidator replaces the address parser used by every address mutator.
func WithAddressValidator(v AddressValidator) BuilderOption {
	return func(b *EmailMessageBuilder) {
		if v != nil {
			b.validator = v
		}
	}
}

// NewEmailMessageBuilder creates an empty builder.
func NewEmailMessageBuilder(opts ...BuilderOption) *EmailMessageBuilder {
	b := &EmailMessageBuilder{
		validator: DefaultAddressValidator{},
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		headers:   make(Headers, 0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetFrom sets the single sender address.
func (b *EmailMessageBuilder) SetFrom(raw string) error {
	addr, err := b.parse("from", raw)
	if err != nil {
		return err
	}
	b.from = addr
	return nil
}

// AddTo appends To recipients in the given order.
// If any address is invalid, none are added.
func (b *EmailMessageBuilder) AddTo(raw ...string) error {
	return b.addRecipients("to", &b.to, raw)
}

// AddCc appends Cc recipients in the given order.
// If any address is invalid, none are added.
func (b *EmailMessageBuilder) AddCc(raw ...string) error {
	return b.addRecipients("cc", &b.cc, raw)
}

// AddBcc appends Bcc recipients in the given order.
// If any address is invalid, none are added.
func (b *EmailMessageBuilder) AddBcc(raw ...string) error {
	return b.addRecipients("bcc", &b.bcc, raw)
}

func (b *EmailMessageBuilder) addRecipients(field string, list *[]Address, raw []string) error {
	parsed := make([]Address, 0, len(raw))
	for _, r := range raw {
		addr, err := b.parse(field, r)
		if err != nil {
			return err
		}
		parsed = append(parsed, addr)
	}
	*list = append(*list, parsed...)
	return nil
}

// AddHeader stores a custom header. Adding a name that is already present
// replaces its value without moving it.
func (b *EmailMessageBuilder) AddHeader(name, value string) error {
	if err := ValidateHeader(name, value); err != nil {
		return err
	}
	b.headers.Set(name, value)
	return nil
}

// AddReplyTo appends a Reply-To address. A non-empty displayName is attached
// as given, replacing any name parsed from raw.
func (b *EmailMessageBuilder) AddReplyTo(raw, displayName string) error {
	addr, err := b.parse("reply-to", raw)
	if err != nil {
		return err
	}
	if displayName != "" {
		addr = addr.WithDisplayName(displayName)
	}
	b.replyTo = append(b.replyTo, addr)
	return nil
}

// SetSubject sets the Subject header text.
func (b *EmailMessageBuilder) SetSubject(subject string) { b.subject = subject }

// SetSentDate sets the Date of the message. The value is stored as given.
func (b *EmailMessageBuilder) SetSentDate(t time.Time) { b.sentDate = t }

// SetSocketConnectionTimeout sets the connect timeout handed to the transport.
// It also serves as the read timeout unless SetSocketTimeout is used.
func (b *EmailMessageBuilder) SetSocketConnectionTimeout(d time.Duration) {
	b.socketConnectionTimeout = d
}

// SetSocketTimeout sets the read timeout handed to the transport.
func (b *EmailMessageBuilder) SetSocketTimeout(d time.Duration) { b.socketTimeout = d }

// SetTextBody sets a text/plain body, replacing any previous body.
func (b *EmailMessageBuilder) SetTextBody(content string) {
	b.body = Body{Kind: BodyText, Content: content}
}

// SetHTMLBody sets a text/html body, replacing any previous body.
func (b *EmailMessageBuilder) SetHTMLBody(content string) {
	b.body = Body{Kind: BodyHTML, Content: content}
}

// SetCharset sets the charset the transport should declare for the body.
func (b *EmailMessageBuilder) SetCharset(charset string) { b.charset = charset }

// From returns the sender, or the zero Address when unset.
func (b *EmailMessageBuilder) From() Address { return b.from }

// To returns a copy of the To recipients in insertion order.
func (b *EmailMessageBuilder) To() []Address { return cloneAddresses(b.to) }

// Cc returns a copy of the Cc recipients in insertion order.
func (b *EmailMessageBuilder) Cc() []Address { return cloneAddresses(b.cc) }

// Bcc returns a copy of the Bcc recipients in insertion order.
func (b *EmailMessageBuilder) Bcc() []Address { return cloneAddresses(b.bcc) }

// ReplyTo returns a copy of the Reply-To addresses.
func (b *EmailMessageBuilder) ReplyTo() []Address { return cloneAddresses(b.replyTo) }

// Headers returns a copy of the custom headers in first-insertion order.
func (b *EmailMessageBuilder) Headers() Headers { return b.headers.Clone() }

// Subject returns the subject, or "" when unset.
func (b *EmailMessageBuilder) Subject() string { return b.subject }

// SentDate returns the date passed to SetSentDate, or the zero time.
func (b *EmailMessageBuilder) SentDate() time.Time { return b.sentDate }

// SocketConnectionTimeout returns the value given to SetSocketConnectionTimeout.
func (b *EmailMessageBuilder) SocketConnectionTimeout() time.Duration {
	return b.socketConnectionTimeout
}

// SocketTimeout returns the value given to SetSocketTimeout.
func (b *EmailMessageBuilder) SocketTimeout() time.Duration { return b.socketTimeout }

// Built reports whether Build has already succeeded.
func (b *EmailMessageBuilder) Built() bool { return b.built }

// Build validates the accumulated fields and freezes them into an EmailMessage.
// It returns ErrAlreadyBuilt on every call after the first successful one,
// ErrMissingFrom without a sender and ErrNoRecipients when To, Cc and Bcc
// are all empty.
func (b *EmailMessageBuilder) Build() (*EmailMessage, error) {
	if b.built {
		b.logger.Warn("build called on an already built message")
		return nil, ErrAlreadyBuilt
	}
	if b.from.IsZero() {
		return nil, ErrMissingFrom
	}
	if len(b.to)+len(b.cc)+len(b.bcc) == 0 {
		return nil, ErrNoRecipients
	}

	sentDate := b.sentDate
	if sentDate.IsZero() {
		sentDate = b.now()
	}

	id := utils.GenerateID()
	messageID, ok := b.headers.getFold("Message-ID")
	if !ok || messageID == "" {
		messageID = fmt.Sprintf("<%s@%s>", id, b.from.Domain)
	}

	body := b.body
	if body.Charset == "" {
		body.Charset = b.charset
	}

	msg := &EmailMessage{
		id:            id,
		messageID:     messageID,
		from:          b.from,
		to:            cloneAddresses(b.to),
		cc:            cloneAddresses(b.cc),
		bcc:           cloneAddresses(b.bcc),
		replyTo:       cloneAddresses(b.replyTo),
		headers:       b.headers.Clone(),
		subject:       b.subject,
		sentDate:      sentDate,
		socketTimeout: b.socketConnectionTimeout,
		body:          body,
	}
	b.built = true

	b.logger.Debug("message built",
		slog.String("id", msg.id),
		slog.String("message_id", msg.messageID),
		slog.String("from", msg.from.String()),
		slog.Int("recipients", len(msg.to)+len(msg.cc)+len(msg.bcc)),
	)
	return msg, nil
}

// MustBuild is like Build but panics on error.
func (b *EmailMessageBuilder) MustBuild() *EmailMessage {
	msg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return msg
}

// parse runs the configured validator and tags failures with the field name.
func (b *EmailMessageBuilder) parse(field, raw string) (Address, error) {
	addr, err := b.validator.Parse(raw)
	if err == nil {
		return addr, nil
	}
	var addrErr *AddressError
	if errors.As(err, &addrErr) {
		tagged := *addrErr
		tagged.Field = field
		return Address{}, &tagged
	}
	return Address{}, &AddressError{Field: field, Input: raw, Err: err}
}
