package ldaps

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"

	"github.com/lugatuic/goberus-auth/config"
)

// directoryConn is the subset of *ldap.Conn one Bind cycle needs.
type directoryConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(d time.Duration)
	Close()
}

// ldapConn adapts *ldap.Conn so Close fits directoryConn and may run twice.
type ldapConn struct {
	*ldap.Conn
}

func (c ldapConn) Close() {
	c.Conn.Close()
}

type dialFunc func(ctx context.Context) (directoryConn, error)

// Client holds configuration and TLS settings for directory connections.
// Every operation dials its own connection and closes it before returning.
type Client struct {
	cfg       config.Directory
	tlsConfig *tls.Config
	logger    *zap.Logger
	dial      dialFunc
}

// NewClient prepares a Client and TLS settings (but does not connect yet).
func NewClient(cfg config.Directory, logger *zap.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("directory host is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("directory port %d out of range", cfg.Port)
	}
	if _, err := BindIdentity(cfg.BindTemplate, "probe"); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{cfg: cfg, logger: logger}

	tlsCfg := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.CACertPath != "" {
		pool, err := config.LoadCAPool(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("load CA pool: %w", err)
		}
		if pool != nil {
			tlsCfg.RootCAs = pool
		}
	}

	c.tlsConfig = tlsCfg
	c.dial = c.dialLDAP
	return c, nil
}

// URL returns the directory URL the client dials.
func (c *Client) URL() string {
	scheme := "ldap"
	if c.cfg.TLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, c.cfg.Addr())
}

func (c *Client) dialLDAP(ctx context.Context) (directoryConn, error) {
	dialer := &net.Dialer{Timeout: c.cfg.Timeout}
	if dl, ok := ctx.Deadline(); ok {
		dialer.Deadline = dl
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if c.cfg.TLS {
		opts = append(opts, ldap.DialWithTLSConfig(c.tlsConfig))
	}

	conn, err := ldap.DialURL(c.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.URL(), err)
	}

	if dl, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(dl))
	} else {
		conn.SetTimeout(c.cfg.Timeout)
	}
	return ldapConn{Conn: conn}, nil
}
