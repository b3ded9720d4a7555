package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/lugatuic/goberus-auth/config"
)

var envKeys = []string{
	"BIND_ADDR", "METRICS_ENABLED",
	"LDAP_HOST", "LDAP_PORT", "LDAP_BASE_DN", "LDAP_BIND_TEMPLATE",
	"LDAP_ACCOUNT_ATTRIBUTE", "LDAP_ATTRIBUTES", "LDAP_TLS", "LDAP_SKIP_VERIFY",
	"LDAP_CA_CERT", "LDAP_TIMEOUT",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
}

// clearEnv blanks every variable the loader reads; empty means default.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	is := is.New(t)
	clearEnv(t)

	cfg, err := config.LoadFromEnv()
	is.NoErr(err)
	is.Equal(cfg.BindAddr, ":8080")
	is.True(cfg.MetricsEnabled)
	is.Equal(cfg.Directory.Port, 636)
	is.True(cfg.Directory.TLS)
	is.Equal(cfg.Directory.AccountAttribute, "sAMAccountName")
	is.Equal(cfg.Directory.Attributes, config.DefaultAttributes)
	is.Equal(cfg.Directory.Timeout, 8*time.Second)
	is.Equal(cfg.Directory.BindTemplate, "{username}@example.com")
	is.True(!cfg.Token.Enabled())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	is := is.New(t)
	clearEnv(t)
	t.Setenv("LDAP_HOST", "ldap.internal")
	t.Setenv("LDAP_PORT", "389")
	t.Setenv("LDAP_TLS", "false")
	t.Setenv("LDAP_BIND_TEMPLATE", "uid={username},ou=people,dc=x,dc=com")
	t.Setenv("LDAP_ACCOUNT_ATTRIBUTE", "uid")
	t.Setenv("LDAP_ATTRIBUTES", "displayName, mail ,,cn")
	t.Setenv("LDAP_TIMEOUT", "3s")
	t.Setenv("JWT_SIGNING_KEY", strings.Repeat("k", 32))
	t.Setenv("JWT_ISSUER", "goberus-auth")
	t.Setenv("JWT_AUDIENCE", "goberus-clients")

	cfg, err := config.LoadFromEnv()
	is.NoErr(err)
	is.Equal(cfg.Directory.Addr(), "ldap.internal:389")
	is.True(!cfg.Directory.TLS)
	is.Equal(cfg.Directory.AccountAttribute, "uid")
	is.Equal(cfg.Directory.Attributes, []string{"displayName", "mail", "cn"})
	is.Equal(cfg.Directory.Timeout, 3*time.Second)
	is.True(cfg.Token.Enabled())
}

func TestLoadFromEnvRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric port", map[string]string{"LDAP_PORT": "ldaps"}},
		{"port out of range", map[string]string{"LDAP_PORT": "70000"}},
		{"bad timeout", map[string]string{"LDAP_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"LDAP_TIMEOUT": "-1s"}},
		{"template without placeholder", map[string]string{"LDAP_BIND_TEMPLATE": "admin@example.com"}},
		{"short signing key", map[string]string{"JWT_SIGNING_KEY": "short", "JWT_ISSUER": "i", "JWT_AUDIENCE": "a"}},
		{"key without audience", map[string]string{"JWT_SIGNING_KEY": strings.Repeat("k", 32), "JWT_ISSUER": "i"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadFromEnv()
			is.True(err != nil)
		})
	}
}

func TestLoadCAPool(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		is := is.New(t)
		pool, err := config.LoadCAPool("")
		is.NoErr(err)
		is.True(pool == nil)
	})

	t.Run("missing file", func(t *testing.T) {
		is := is.New(t)
		_, err := config.LoadCAPool(filepath.Join(t.TempDir(), "nope.pem"))
		is.True(err != nil)
	})

	t.Run("not a certificate", func(t *testing.T) {
		is := is.New(t)
		path := filepath.Join(t.TempDir(), "ca.pem")
		is.NoErr(os.WriteFile(path, []byte("not pem"), 0o600))
		_, err := config.LoadCAPool(path)
		is.True(err != nil)
	})
}
