package ports

import (
	"errors"
	"time"
)

// DefaultTokenTTL is the token lifetime used when none is configured.
const DefaultTokenTTL = time.Hour

// ErrInvalidToken is the single outcome of every rejected verification.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims are the identity claims carried by a bearer token.
type TokenClaims struct {
	Subject string
	Role    string
}

// TokenCodec issues and verifies signed, expiring bearer tokens.
type TokenCodec interface {
	Issue(subject, role string, now time.Time) (string, error)
	Verify(token string, now time.Time) (TokenClaims, error)
	TTL() time.Duration
}
