package quill

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/tinylib/msgp/msgp"
)

// BodyKind tags the variant held by a Body.
type BodyKind uint8

const (
	// BodyNone means no body was set; the transport sends an empty text part.
	BodyNone BodyKind = iota
	// BodyText is a text/plain body.
	BodyText
	// BodyHTML is a text/html body.
	BodyHTML
)

// String returns the MIME media type for the body kind.
func (k BodyKind) String() string {
	switch k {
	case BodyText:
		return "text/plain"
	case BodyHTML:
		return "text/html"
	default:
		return ""
	}
}

// Body is the message content handed to the transport for MIME encoding.
type Body struct {
	Kind    BodyKind `json:"kind"`
	Content string   `json:"content,omitempty"`
	Charset string   `json:"charset,omitempty"`
}

// EmailMessage is the immutable result of EmailMessageBuilder.Build.
// Accessors return copies, so a message can be shared freely between
// goroutines and handed to the transport. Decoding always produces a new
// value through FromJSON or FromMessagePack.
type EmailMessage struct {
	id            string
	messageID     string
	from          Address
	to            []Address
	cc            []Address
	bcc           []Address
	replyTo       []Address
	headers       Headers
	subject       string
	sentDate      time.Time
	socketTimeout time.Duration
	body          Body
}

// ID is a unique identifier (ULID) assigned at build time.
func (m *EmailMessage) ID() string { return m.id }

// MessageID is the value for the Message-ID header, including angle brackets.
func (m *EmailMessage) MessageID() string { return m.messageID }

// From returns the sender.
func (m *EmailMessage) From() Address { return m.from }

// To returns a copy of the To recipients.
func (m *EmailMessage) To() []Address { return cloneAddresses(m.to) }

// Cc returns a copy of the Cc recipients.
func (m *EmailMessage) Cc() []Address { return cloneAddresses(m.cc) }

// Bcc returns a copy of the Bcc recipients.
func (m *EmailMessage) Bcc() []Address { return cloneAddresses(m.bcc) }

// ReplyTo returns a copy of the Reply-To addresses.
func (m *EmailMessage) ReplyTo() []Address { return cloneAddresses(m.replyTo) }

// Headers returns the custom headers in first-insertion order.
func (m *EmailMessage) Headers() Headers { return m.headers.Clone() }

// Subject returns the subject, "" when none was set.
func (m *EmailMessage) Subject() string { return m.subject }

// SentDate is the date set on the builder, or the build time when none was set.
func (m *EmailMessage) SentDate() time.Time { return m.sentDate }

// SocketConnectionTimeout is carried through for the transport; it is not
// enforced here.
func (m *EmailMessage) SocketConnectionTimeout() time.Duration { return m.socketTimeout }

// Body returns the message content.
func (m *EmailMessage) Body() Body { return m.body }

// Built is always true for a message returned by Build.
func (m *EmailMessage) Built() bool { return true }

// Recipients returns the envelope recipients: To, then Cc, then Bcc.
func (m *EmailMessage) Recipients() []Address {
	return lo.Flatten([][]Address{m.to, m.cc, m.bcc})
}

func cloneAddresses(in []Address) []Address {
	out := make([]Address, len(in))
	copy(out, in)
	return out
}

// messageJSON is the wire form of EmailMessage.
type messageJSON struct {
	ID            string        `json:"id"`
	MessageID     string        `json:"message_id"`
	From          Address       `json:"from"`
	To            []Address     `json:"to,omitempty"`
	Cc            []Address     `json:"cc,omitempty"`
	Bcc           []Address     `json:"bcc,omitempty"`
	ReplyTo       []Address     `json:"reply_to,omitempty"`
	Headers       Headers       `json:"headers,omitempty"`
	Subject       string        `json:"subject"`
	SentDate      time.Time     `json:"sent_date"`
	SocketTimeout time.Duration `json:"socket_timeout,omitempty"`
	Body          Body          `json:"body"`
}

// MarshalJSON implements json.Marshaler.
func (m *EmailMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:            m.id,
		MessageID:     m.messageID,
		From:          m.from,
		To:            m.to,
		Cc:            m.cc,
		Bcc:           m.bcc,
		ReplyTo:       m.replyTo,
		Headers:       m.headers,
		Subject:       m.subject,
		SentDate:      m.sentDate,
		SocketTimeout: m.socketTimeout,
		Body:          m.body,
	})
}

// ToJSON serializes the message to JSON bytes.
func (m *EmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON deserializes a message from JSON bytes into a new EmailMessage.
func FromJSON(data []byte) (*EmailMessage, error) {
	var w messageJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &EmailMessage{
		id:            w.ID,
		messageID:     w.MessageID,
		from:          w.From,
		to:            w.To,
		cc:            w.Cc,
		bcc:           w.Bcc,
		replyTo:       w.ReplyTo,
		headers:       w.Headers,
		subject:       w.Subject,
		sentDate:      w.SentDate,
		socketTimeout: w.SocketTimeout,
		body:          w.Body,
	}, nil
}

// ToMessagePack serializes the message to MessagePack bytes.
func (m *EmailMessage) ToMessagePack() ([]byte, error) {
	return m.MarshalMsg(make([]byte, 0, m.Msgsize()))
}

// FromMessagePack deserializes a message from MessagePack bytes into a new
// EmailMessage.
func FromMessagePack(data []byte) (*EmailMessage, error) {
	m, _, err := decodeMsg(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalMsg implements msgp.Marshaler.
func (m *EmailMessage) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, m.Msgsize())
	o = msgp.AppendMapHeader(o, 12)
	o = msgp.AppendString(o, "id")
	o = msgp.AppendString(o, m.id)
	o = msgp.AppendString(o, "message_id")
	o = msgp.AppendString(o, m.messageID)
	o = msgp.AppendString(o, "from")
	o = appendAddress(o, m.from)
	o = msgp.AppendString(o, "to")
	o = appendAddressList(o, m.to)
	o = msgp.AppendString(o, "cc")
	o = appendAddressList(o, m.cc)
	o = msgp.AppendString(o, "bcc")
	o = appendAddressList(o, m.bcc)
	o = msgp.AppendString(o, "reply_to")
	o = appendAddressList(o, m.replyTo)
	o = msgp.AppendString(o, "headers")
	o = msgp.AppendArrayHeader(o, uint32(len(m.headers)))
	for _, h := range m.headers {
		o = msgp.AppendArrayHeader(o, 2)
		o = msgp.AppendString(o, h.Name)
		o = msgp.AppendString(o, h.Value)
	}
	o = msgp.AppendString(o, "subject")
	o = msgp.AppendString(o, m.subject)
	o = msgp.AppendString(o, "sent_date")
	o = msgp.AppendTime(o, m.sentDate)
	o = msgp.AppendString(o, "socket_timeout")
	o = msgp.AppendInt64(o, int64(m.socketTimeout))
	o = msgp.AppendString(o, "body")
	o = msgp.AppendMapHeader(o, 3)
	o = msgp.AppendString(o, "kind")
	o = msgp.AppendUint8(o, uint8(m.body.Kind))
	o = msgp.AppendString(o, "content")
	o = msgp.AppendString(o, m.body.Content)
	o = msgp.AppendString(o, "charset")
	o = msgp.AppendString(o, m.body.Charset)
	return o, nil
}

// decodeMsg reads the map written by MarshalMsg. Unknown keys are skipped.
func decodeMsg(bts []byte) (*EmailMessage, []byte, error) {
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}

	var out EmailMessage
	for ; sz > 0; sz-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return nil, bts, err
		}
		switch string(field) {
		case "id":
			out.id, bts, err = msgp.ReadStringBytes(bts)
		case "message_id":
			out.messageID, bts, err = msgp.ReadStringBytes(bts)
		case "from":
			out.from, bts, err = readAddress(bts)
		case "to":
			out.to, bts, err = readAddressList(bts)
		case "cc":
			out.cc, bts, err = readAddressList(bts)
		case "bcc":
			out.bcc, bts, err = readAddressList(bts)
		case "reply_to":
			out.replyTo, bts, err = readAddressList(bts)
		case "headers":
			out.headers, bts, err = readHeaders(bts)
		case "subject":
			out.subject, bts, err = msgp.ReadStringBytes(bts)
		case "sent_date":
			out.sentDate, bts, err = msgp.ReadTimeBytes(bts)
		case "socket_timeout":
			var d int64
			d, bts, err = msgp.ReadInt64Bytes(bts)
			out.socketTimeout = time.Duration(d)
		case "body":
			out.body, bts, err = readBody(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return nil, bts, fmt.Errorf("decode %s: %w", field, err)
		}
	}
	return &out, bts, nil
}

// Msgsize returns an upper bound for the encoded size.
func (m *EmailMessage) Msgsize() int {
	s := msgp.MapHeaderSize +
		12*msgp.StringPrefixSize + 72 + // keys
		msgp.StringPrefixSize + len(m.id) +
		msgp.StringPrefixSize + len(m.messageID) +
		addressSize(m.from) +
		addressListSize(m.to) + addressListSize(m.cc) + addressListSize(m.bcc) + addressListSize(m.replyTo) +
		msgp.ArrayHeaderSize +
		msgp.StringPrefixSize + len(m.subject) +
		msgp.TimeSize + msgp.Int64Size +
		msgp.MapHeaderSize + 3*msgp.StringPrefixSize + 18 + msgp.Uint8Size +
		2*msgp.StringPrefixSize + len(m.body.Content) + len(m.body.Charset)
	for _, h := range m.headers {
		s += msgp.ArrayHeaderSize + 2*msgp.StringPrefixSize + len(h.Name) + len(h.Value)
	}
	return s
}

func appendAddress(o []byte, a Address) []byte {
	o = msgp.AppendMapHeader(o, 3)
	o = msgp.AppendString(o, "local_part")
	o = msgp.AppendString(o, a.LocalPart)
	o = msgp.AppendString(o, "domain")
	o = msgp.AppendString(o, a.Domain)
	o = msgp.AppendString(o, "display_name")
	o = msgp.AppendString(o, a.DisplayName)
	return o
}

func appendAddressList(o []byte, list []Address) []byte {
	o = msgp.AppendArrayHeader(o, uint32(len(list)))
	for _, a := range list {
		o = appendAddress(o, a)
	}
	return o
}

func addressSize(a Address) int {
	return msgp.MapHeaderSize + 6*msgp.StringPrefixSize + 28 +
		len(a.LocalPart) + len(a.Domain) + len(a.DisplayName)
}

func addressListSize(list []Address) int {
	s := msgp.ArrayHeaderSize
	for _, a := range list {
		s += addressSize(a)
	}
	return s
}

func readAddress(bts []byte) (Address, []byte, error) {
	var a Address
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return a, bts, err
	}
	for ; sz > 0; sz-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return a, bts, err
		}
		switch string(field) {
		case "local_part":
			a.LocalPart, bts, err = msgp.ReadStringBytes(bts)
		case "domain":
			a.Domain, bts, err = msgp.ReadStringBytes(bts)
		case "display_name":
			a.DisplayName, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return a, bts, err
		}
	}
	return a, bts, nil
}

func readAddressList(bts []byte) ([]Address, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}
	list := make([]Address, 0, sz)
	for ; sz > 0; sz-- {
		var a Address
		a, bts, err = readAddress(bts)
		if err != nil {
			return nil, bts, err
		}
		list = append(list, a)
	}
	return list, bts, nil
}

func readHeaders(bts []byte) (Headers, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}
	headers := make(Headers, 0, sz)
	for ; sz > 0; sz-- {
		var n uint32
		n, bts, err = msgp.ReadArrayHeaderBytes(bts)
		if err != nil {
			return nil, bts, err
		}
		if n != 2 {
			return nil, bts, msgp.ArrayError{Wanted: 2, Got: n}
		}
		var h Header
		if h.Name, bts, err = msgp.ReadStringBytes(bts); err != nil {
			return nil, bts, err
		}
		if h.Value, bts, err = msgp.ReadStringBytes(bts); err != nil {
			return nil, bts, err
		}
		headers = append(headers, h)
	}
	return headers, bts, nil
}

func readBody(bts []byte) (Body, []byte, error) {
	var b Body
	sz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return b, bts, err
	}
	for ; sz > 0; sz-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return b, bts, err
		}
		switch string(field) {
		case "kind":
			var k uint8
			k, bts, err = msgp.ReadUint8Bytes(bts)
			b.Kind = BodyKind(k)
		case "content":
			b.Content, bts, err = msgp.ReadStringBytes(bts)
		case "charset":
			b.Charset, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return b, bts, err
		}
	}
	return b, bts, nil
}
