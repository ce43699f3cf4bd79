package quill

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/net/idna"

	"github.com/synqronlabs/quill/utils"
)

const (
	// DefaultPort is the plaintext/STARTTLS SMTP port used when none is set.
	DefaultPort = 25
	// DefaultSSLPort is the implicit TLS port used with SSL-on-connect.
	DefaultSSLPort = 465
)

// Property keys understood by SMTP-property-keyed transports.
const (
	PropHost                   = "host"
	PropPort                   = "port"
	PropSSLEnable              = "ssl.enable"
	PropStartTLSEnable         = "starttls.enable"
	PropStartTLSRequired       = "starttls.required"
	PropSSLCheckServerIdentity = "ssl.checkserveridentity"
	PropEnvelopeFrom           = "envelope.from"
	PropConnectionTimeout      = "connection.timeout"
	PropReadTimeout            = "read.timeout"
)

// javaMailKeys maps property keys to their JavaMail "mail.smtp.*" names.
var javaMailKeys = map[string]string{
	PropHost:                   "mail.smtp.host",
	PropPort:                   "mail.smtp.port",
	PropSSLEnable:              "mail.smtp.ssl.enable",
	PropStartTLSEnable:         "mail.smtp.starttls.enable",
	PropStartTLSRequired:       "mail.smtp.starttls.required",
	PropSSLCheckServerIdentity: "mail.smtp.ssl.checkserveridentity",
	PropEnvelopeFrom:           "mail.smtp.from",
	PropConnectionTimeout:      "mail.smtp.connectiontimeout",
	PropReadTimeout:            "mail.smtp.timeout",
}

// SessionConfig is the connection posture handed to an SMTP transport.
// It is a plain value; deriving it never touches the network.
type SessionConfig struct {
	HostName string
	Port     int

	// SSLOnConnect selects implicit TLS from the first byte.
	SSLOnConnect bool
	// StartTLSEnabled upgrades a plaintext connection when the server offers STARTTLS.
	StartTLSEnabled bool
	// StartTLSRequired fails the connection when STARTTLS is unavailable.
	StartTLSRequired bool
	// SSLCheckServerIdentity verifies the certificate matches HostName.
	// Only ever true when SSLOnConnect or StartTLSEnabled is set.
	SSLCheckServerIdentity bool

	// BounceAddress overrides the envelope sender (MAIL FROM). Nil means the
	// message From address is used.
	BounceAddress *Address

	// Zero timeouts leave the transport defaults in place.
	ConnectionTimeout time.Duration
	ReadTimeout       time.Duration
}

// Addr returns "host:port" for dialing.
func (c SessionConfig) Addr() string {
	return net.JoinHostPort(c.HostName, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether the session uses TLS in either form.
func (c SessionConfig) TLSEnabled() bool {
	return c.SSLOnConnect || c.StartTLSEnabled
}

// EnvelopeFrom returns the reverse-path to use for msg.
func (c SessionConfig) EnvelopeFrom(msg *EmailMessage) Address {
	if c.BounceAddress != nil {
		return *c.BounceAddress
	}
	return msg.From()
}

// TLSConfig returns client TLS settings for SSL-on-connect or STARTTLS.
// Without SSLCheckServerIdentity the certificate chain is still verified,
// but its names are not matched against HostName.
func (c SessionConfig) TLSConfig() *tls.Config {
	cfg := &tls.Config{
		ServerName: c.HostName,
		MinVersion: tls.VersionTLS12,
	}
	if !c.SSLCheckServerIdentity {
		cfg.InsecureSkipVerify = true //nolint:gosec // chain is verified in VerifyConnection
		cfg.VerifyConnection = verifyChainOnly
	}
	return cfg
}

func verifyChainOnly(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("quill: server presented no certificate")
	}
	opts := x509.VerifyOptions{Intermediates: x509.NewCertPool()}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

// Properties renders the config as a flat key/value table using the Prop*
// keys. Timeouts are in milliseconds and omitted when zero; envelope.from is
// omitted without a bounce address.
func (c SessionConfig) Properties() map[string]string {
	props := map[string]string{
		PropHost:                   c.HostName,
		PropPort:                   strconv.Itoa(c.Port),
		PropSSLEnable:              strconv.FormatBool(c.SSLOnConnect),
		PropStartTLSEnable:         strconv.FormatBool(c.StartTLSEnabled),
		PropStartTLSRequired:       strconv.FormatBool(c.StartTLSRequired),
		PropSSLCheckServerIdentity: strconv.FormatBool(c.SSLCheckServerIdentity),
	}
	if c.BounceAddress != nil {
		props[PropEnvelopeFrom] = c.BounceAddress.String()
	}
	if c.ConnectionTimeout > 0 {
		props[PropConnectionTimeout] = strconv.FormatInt(c.ConnectionTimeout.Milliseconds(), 10)
	}
	if c.ReadTimeout > 0 {
		props[PropReadTimeout] = strconv.FormatInt(c.ReadTimeout.Milliseconds(), 10)
	}
	return props
}

// JavaMailProperties is Properties keyed by JavaMail "mail.smtp.*" names.
func (c SessionConfig) JavaMailProperties() map[string]string {
	return lo.MapKeys(c.Properties(), func(_ string, key string) string {
		return javaMailKeys[key]
	})
}

func (c SessionConfig) clone() SessionConfig {
	if c.BounceAddress != nil {
		bounce := *c.BounceAddress
		c.BounceAddress = &bounce
	}
	return c
}

// NewSessionConfig derives a SessionConfig from the builder's transport
// settings. It is recomputed on every call, so later changes to the builder
// are always reflected; only an explicit SetSessionConfig pins the result.
func NewSessionConfig(b *EmailMessageBuilder) (SessionConfig, error) {
	if b.session != nil {
		return pinnedSessionConfig(*b.session)
	}

	host, err := checkHost(b.hostName)
	if err != nil {
		return SessionConfig{}, err
	}

	port := b.smtpPort
	if b.sslOnConnect {
		switch {
		case b.sslSMTPPort > 0:
			port = b.sslSMTPPort
		case port == 0:
			port = DefaultSSLPort
		}
	}
	if port == 0 {
		port = DefaultPort
	}

	cfg := SessionConfig{
		HostName:          host,
		Port:              port,
		SSLOnConnect:      b.sslOnConnect,
		StartTLSEnabled:   b.startTLSEnabled || b.startTLSRequired,
		StartTLSRequired:  b.startTLSRequired,
		ConnectionTimeout: b.socketConnectionTimeout,
		ReadTimeout:       b.socketTimeout,
	}
	cfg.SSLCheckServerIdentity = b.sslCheckServerIdentity && cfg.TLSEnabled()
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = b.socketConnectionTimeout
	}
	if b.bounceAddress != nil {
		bounce := *b.bounceAddress
		cfg.BounceAddress = &bounce
	}

	b.logger.Debug("session config derived",
		slog.String("addr", cfg.Addr()),
		slog.Bool("ssl", cfg.SSLOnConnect),
		slog.Bool("starttls", cfg.StartTLSEnabled),
		slog.Bool("check_server_identity", cfg.SSLCheckServerIdentity),
	)
	return cfg, nil
}

// pinnedSessionConfig holds an explicit config to the same rules as a
// derived one. A zero Port selects the default for its TLS mode.
func pinnedSessionConfig(pinned SessionConfig) (SessionConfig, error) {
	cfg := pinned.clone()
	host, err := checkHost(cfg.HostName)
	if err != nil {
		return SessionConfig{}, err
	}
	cfg.HostName = host
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
		if cfg.SSLOnConnect {
			cfg.Port = DefaultSSLPort
		}
	}
	cfg.StartTLSEnabled = cfg.StartTLSEnabled || cfg.StartTLSRequired
	cfg.SSLCheckServerIdentity = cfg.SSLCheckServerIdentity && cfg.TLSEnabled()
	return cfg, nil
}

func checkHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", ErrMissingHostName
	}
	host, err := normalizeHost(host)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidHostName, raw, err)
	}
	return host, nil
}

// normalizeHost accepts an IP (bracketed or not) or a domain name and
// returns it without brackets. IDNs are checked in A-label form but
// returned as given, as is a trailing root dot.
func normalizeHost(host string) (string, error) {
	if ip := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"); net.ParseIP(ip) != nil {
		return ip, nil
	}
	// A single trailing dot marks a fully-qualified name.
	ascii := strings.TrimSuffix(host, ".")
	if utils.ContainsNonASCII(ascii) {
		var err error
		ascii, err = idna.Lookup.ToASCII(ascii)
		if err != nil {
			return "", err
		}
	}
	if err := validateHostname(ascii); err != nil {
		return "", err
	}
	return host, nil
}

// SessionConfig derives the transport configuration. See NewSessionConfig.
func (b *EmailMessageBuilder) SessionConfig() (SessionConfig, error) {
	return NewSessionConfig(b)
}

// SetSessionConfig pins an explicit SessionConfig. Until ClearSessionConfig
// is called, SessionConfig returns a copy of cfg and HostName reports its
// host, regardless of the individual transport setters. The pinned value is
// checked on every SessionConfig call like a derived one.
func (b *EmailMessageBuilder) SetSessionConfig(cfg SessionConfig) {
	pinned := cfg.clone()
	b.session = &pinned
}

// ClearSessionConfig drops a config pinned with SetSessionConfig.
func (b *EmailMessageBuilder) ClearSessionConfig() { b.session = nil }

// SetHostName sets the SMTP server host name or IP address.
func (b *EmailMessageBuilder) SetHostName(host string) { b.hostName = host }

// HostName returns the host of a pinned SessionConfig if there is one,
// otherwise the value given to SetHostName.
func (b *EmailMessageBuilder) HostName() string {
	if b.session != nil {
		return b.session.HostName
	}
	return b.hostName
}

// SetSMTPPort sets the port. Zero restores the protocol default.
func (b *EmailMessageBuilder) SetSMTPPort(port int) { b.smtpPort = port }

// SMTPPort returns the port given to SetSMTPPort, or zero.
func (b *EmailMessageBuilder) SMTPPort() int { return b.smtpPort }

// SetSSLSMTPPort sets the port used with SSL-on-connect.
func (b *EmailMessageBuilder) SetSSLSMTPPort(port int) { b.sslSMTPPort = port }

// SSLSMTPPort returns the port given to SetSSLSMTPPort, or zero.
func (b *EmailMessageBuilder) SSLSMTPPort() int { return b.sslSMTPPort }

// SetSSLOnConnect selects implicit TLS from the first byte of the connection.
func (b *EmailMessageBuilder) SetSSLOnConnect(on bool) { b.sslOnConnect = on }

// SSLOnConnect reports whether implicit TLS is selected.
func (b *EmailMessageBuilder) SSLOnConnect() bool { return b.sslOnConnect }

// SetStartTLSEnabled upgrades the connection when the server offers STARTTLS.
func (b *EmailMessageBuilder) SetStartTLSEnabled(on bool) { b.startTLSEnabled = on }

// StartTLSEnabled reports the value given to SetStartTLSEnabled.
func (b *EmailMessageBuilder) StartTLSEnabled() bool { return b.startTLSEnabled }

// SetStartTLSRequired makes STARTTLS mandatory; it implies StartTLSEnabled
// in the derived SessionConfig.
func (b *EmailMessageBuilder) SetStartTLSRequired(on bool) { b.startTLSRequired = on }

// StartTLSRequired reports the value given to SetStartTLSRequired.
func (b *EmailMessageBuilder) StartTLSRequired() bool { return b.startTLSRequired }

// SetSSLCheckServerIdentity requests that the server certificate match the
// host name. It only takes effect when SSL or STARTTLS is enabled.
func (b *EmailMessageBuilder) SetSSLCheckServerIdentity(on bool) { b.sslCheckServerIdentity = on }

// SSLCheckServerIdentity reports the value given to SetSSLCheckServerIdentity.
func (b *EmailMessageBuilder) SSLCheckServerIdentity() bool { return b.sslCheckServerIdentity }

// SetBounceAddress sets the envelope sender used for delivery failure notices.
// An empty raw value clears it.
func (b *EmailMessageBuilder) SetBounceAddress(raw string) error {
	if strings.TrimSpace(raw) == "" {
		b.bounceAddress = nil
		return nil
	}
	addr, err := b.parse("bounce", raw)
	if err != nil {
		return err
	}
	b.bounceAddress = &addr
	return nil
}

// BounceAddress returns the bounce address and whether one is set.
func (b *EmailMessageBuilder) BounceAddress() (Address, bool) {
	if b.bounceAddress == nil {
		return Address{}, false
	}
	return *b.bounceAddress, true
}
