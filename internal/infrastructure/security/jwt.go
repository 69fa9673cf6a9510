package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/investae/investments-api/internal/core/ports"
)

// tokenPrecision is the resolution of iat and exp on the wire.
const tokenPrecision = time.Millisecond

func init() {
	jwt.TimePrecision = tokenPrecision
}

// accessClaims is the payload of an access token: sub, role, iat, exp.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTCodec issues and verifies HS256 bearer tokens with a process-wide key.
type JWTCodec struct {
	key []byte
	ttl time.Duration
}

// NewJWTCodec rejects an empty secret or a non-positive TTL.
func NewJWTCodec(secret string, ttl time.Duration) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt: token ttl must be positive")
	}
	return &JWTCodec{key: []byte(secret), ttl: ttl}, nil
}

func (c *JWTCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject valid from now until now+TTL.
func (c *JWTCodec) Issue(subject, role string, now time.Time) (string, error) {
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify accepts a token only if it is well formed, carries sub and role,
// verifies against the key and iat <= now < exp. Every rejection is
// ports.ErrInvalidToken.
func (c *JWTCodec) Verify(token string, now time.Time) (ports.TokenClaims, error) {
	// Time claims are checked here: the decoder goes through float64 seconds,
	// so both values are rounded back to tokenPrecision first.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)

	var claims accessClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil || !parsed.Valid {
		return ports.TokenClaims{}, ports.ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return ports.TokenClaims{}, ports.ErrInvalidToken
	}
	iat := claims.IssuedAt.Round(tokenPrecision)
	exp := claims.ExpiresAt.Round(tokenPrecision)
	if iat.After(now) || !now.Before(exp) {
		return ports.TokenClaims{}, ports.ErrInvalidToken
	}
	return ports.TokenClaims{Subject: claims.Subject, Role: claims.Role}, nil
}
