// Package token implements the signed-credential codec used for access and
// refresh tokens. Signing and verification are pure computation; the codec
// holds no state beyond its key and TTL.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/streampulse/user-service/internal/core/domain"
)

const issuer = "streampulse"

// Codec signs and verifies HS256 tokens carrying a subject id and expiry.
// Build one instance per token class (access, refresh), each with its own
// secret and TTL.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign produces a token for subjectID expiring after the codec's TTL.
func (c *Codec) Sign(subjectID string) (string, error) {
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature and expiry and returns the subject id. Expired
// tokens yield domain.ErrTokenExpired; every other failure (tampered
// payload, wrong key, wrong algorithm, malformed input, empty subject)
// yields domain.ErrInvalidToken.
func (c *Codec) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
