// Package config loads sender and SMTP transport settings from a file and
// the environment and applies them to a quill.EmailMessageBuilder.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"

	"github.com/synqronlabs/quill"
)

// EnvPrefix is prepended to environment overrides, e.g. QUILL_SMTP_HOST.
const EnvPrefix = "QUILL"

// ErrTranslatorNotFound indicates the English translator could not be loaded.
var ErrTranslatorNotFound = errors.New("config: translator not found")

// Config is the root of a quill configuration file.
type Config struct {
	// From is the default sender, in "user@domain" or "Name <user@domain>" form.
	From    string    `mapstructure:"from"`
	Charset string    `mapstructure:"charset"`
	SMTP    Transport `mapstructure:"smtp"`
}

// Transport mirrors the transport setters of quill.EmailMessageBuilder.
// Zero ports select the protocol defaults.
type Transport struct {
	Host                string        `mapstructure:"host" validate:"required"`
	Port                int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	SSLPort             int           `mapstructure:"ssl_port" validate:"gte=0,lte=65535"`
	SSLOnConnect        bool          `mapstructure:"ssl_on_connect"`
	StartTLS            bool          `mapstructure:"starttls"`
	StartTLSRequired    bool          `mapstructure:"starttls_required"`
	CheckServerIdentity bool          `mapstructure:"check_server_identity"`
	BounceAddress       string        `mapstructure:"bounce_address"`
	ConnectionTimeout   time.Duration `mapstructure:"connection_timeout" validate:"gte=0"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
}

// ValidationError maps a dotted field path (e.g. "smtp.port") to a message.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "config: validation error"
	}
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "config: " + strings.Join(parts, "; ")
}

// Load reads the file at path and applies QUILL_* environment overrides.
// The format is inferred from the file extension.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v)
}

// LoadBytes reads configuration from memory. configType is any format viper
// supports ("yaml", "json", "toml").
func LoadBytes(configType string, data []byte) (*Config, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config: config type is required")
	}
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configType, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so env-only values survive Unmarshal.
	v.SetDefault("from", "")
	v.SetDefault("charset", "UTF-8")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 0)
	v.SetDefault("smtp.ssl_port", 0)
	v.SetDefault("smtp.ssl_on_connect", false)
	v.SetDefault("smtp.starttls", false)
	v.SetDefault("smtp.starttls_required", false)
	v.SetDefault("smtp.check_server_identity", false)
	v.SetDefault("smtp.bounce_address", "")
	v.SetDefault("smtp.connection_timeout", time.Duration(0))
	v.SetDefault("smtp.read_timeout", time.Duration(0))
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. Failures are reported as a
// ValidationError keyed by mapstructure path.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	trans, ok := uni.GetTranslator("en")
	if !ok {
		return ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return err
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		out[path] = fe.Translate(trans)
	}
	return out
}

// Apply copies the settings onto b. Address fields go through the builder's
// validator, so b is only partially updated when Apply returns an error.
func (c *Config) Apply(b *quill.EmailMessageBuilder) error {
	t := c.SMTP
	b.SetHostName(t.Host)
	b.SetSMTPPort(t.Port)
	b.SetSSLSMTPPort(t.SSLPort)
	b.SetSSLOnConnect(t.SSLOnConnect)
	b.SetStartTLSEnabled(t.StartTLS)
	b.SetStartTLSRequired(t.StartTLSRequired)
	b.SetSSLCheckServerIdentity(t.CheckServerIdentity)
	b.SetSocketConnectionTimeout(t.ConnectionTimeout)
	b.SetSocketTimeout(t.ReadTimeout)
	b.SetCharset(c.Charset)

	if err := b.SetBounceAddress(t.BounceAddress); err != nil {
		return err
	}
	if c.From != "" {
		if err := b.SetFrom(c.From); err != nil {
			return err
		}
	}
	return nil
}
