// Package token issues and verifies the access tokens handed out after a
// successful directory authentication.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lugatuic/goberus-auth/config"
)

// Lifetime is fixed; tokens are neither refreshable nor revocable.
const Lifetime = time.Hour

// TypeBearer is the token_type reported to clients.
const TypeBearer = "Bearer"

const minKeyLength = 32

// Claims carried by every issued token.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is a signed token plus the times it was stamped with.
type Token struct {
	Value     string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 tokens for one issuer/audience pair.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now, for tests that move the clock.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer builds an Issuer from the token settings.
func NewIssuer(cfg config.Token, opts ...Option) (*Issuer, error) {
	if len(cfg.SigningKey) < minKeyLength {
		return nil, ErrInvalidKeyLength
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token issuer and audience are required")
	}

	i := &Issuer{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a token whose subject is username.
func (i *Issuer) Issue(username string) (*Token, error) {
	if username == "" {
		return nil, ErrEmptySubject
	}

	// NumericDate keeps whole seconds; truncating first keeps exp-iat exact.
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(Lifetime)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   username,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Token{
		Value:     signed,
		Type:      TypeBearer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, issuer, audience and expiry, and returns the claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
