package config

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// UsernamePlaceholder is replaced by the bare username in Directory.BindTemplate.
const UsernamePlaceholder = "{username}"

// DefaultAttributes mirrors the profile fields exposed to callers.
var DefaultAttributes = []string{"displayName", "mail", "department", "title"}

type Config struct {
	BindAddr       string // HTTP bind address, e.g. :8080
	MetricsEnabled bool
	Directory      Directory
	Token          Token
}

// Directory describes how to reach and query the LDAP server.
type Directory struct {
	Host             string        `validate:"required,hostname_rfc1123|ip"`
	Port             int           `validate:"min=1,max=65535"`
	BaseDN           string        `validate:"required"`
	BindTemplate     string        `validate:"required,contains={username}"`
	AccountAttribute string        `validate:"required"`
	Attributes       []string      `validate:"required,min=1,dive,required"`
	TLS              bool          // dial ldaps:// instead of ldap://
	SkipVerify       bool
	CACertPath       string        // optional path to CA PEM to verify LDAPS certs
	Timeout          time.Duration `validate:"gt=0"`
}

// Addr returns host:port.
func (d Directory) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Token holds signing settings. An empty SigningKey disables issuance.
type Token struct {
	SigningKey string `validate:"omitempty,min=32"`
	Issuer     string `validate:"required_with=SigningKey"`
	Audience   string `validate:"required_with=SigningKey"`
}

// Enabled reports whether tokens can be issued.
func (t Token) Enabled() bool {
	return t.SigningKey != ""
}

var validate = validator.New()

// LoadFromEnv reads an optional .env file and then the process environment.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	port, err := intFromEnv("LDAP_PORT", 636)
	if err != nil {
		return nil, err
	}
	timeout, err := durationFromEnv("LDAP_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BindAddr:       getenv("BIND_ADDR", ":8080"),
		MetricsEnabled: boolFromEnv("METRICS_ENABLED", true),
		Directory: Directory{
			Host:             getenv("LDAP_HOST", "dc.example.local"),
			Port:             port,
			BaseDN:           getenv("LDAP_BASE_DN", "dc=example,dc=local"),
			BindTemplate:     getenv("LDAP_BIND_TEMPLATE", UsernamePlaceholder+"@example.com"),
			AccountAttribute: getenv("LDAP_ACCOUNT_ATTRIBUTE", "sAMAccountName"),
			Attributes:       listFromEnv("LDAP_ATTRIBUTES", DefaultAttributes),
			TLS:              boolFromEnv("LDAP_TLS", true),
			SkipVerify:       boolFromEnv("LDAP_SKIP_VERIFY", false),
			CACertPath:       os.Getenv("LDAP_CA_CERT"),
			Timeout:          timeout,
		},
		Token: Token{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     os.Getenv("JWT_ISSUER"),
			Audience:   os.Getenv("JWT_AUDIENCE"),
		},
	}
	// CA cert existence is checked at connection time, not here; containers may
	// mount it after startup.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the directory and token settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c.Directory); err != nil {
		return fmt.Errorf("invalid directory config: %w", err)
	}
	if err := validate.Struct(c.Token); err != nil {
		return fmt.Errorf("invalid token config: %w", err)
	}
	return nil
}

func boolFromEnv(key string, def bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return def
	}
	trimmed := strings.Trim(val, "\"'")
	b, err := strconv.ParseBool(trimmed)
	if err != nil {
		return def
	}
	return b
}

func intFromEnv(key string, def int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// listFromEnv splits a comma-separated value, dropping empty items.
func listFromEnv(key string, def []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// LoadCAPool reads PEM certificates for verifying LDAPS servers. An empty path returns nil.
func LoadCAPool(caPath string) (*x509.CertPool, error) {
	if caPath == "" {
		return nil, nil
	}
	pemData, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(pemData); !ok {
		return nil, fmt.Errorf("failed to parse CA certificate(s) from %s", caPath)
	}
	return pool, nil
}
