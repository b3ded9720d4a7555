package token

import "errors"

var (
	// ErrTokenGeneration indicates signing failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrInvalidToken covers bad signatures, wrong issuer or audience, and malformed tokens
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token is past its expiry
	ErrExpiredToken = errors.New("token expired")

	ErrEmptySubject = errors.New("token subject is required")

	ErrInvalidKeyLength = errors.New("signing key must be at least 32 bytes")
)
