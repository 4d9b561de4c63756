package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "vidtube"

// ErrInvalidToken indicates an access token failed signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid access token")

// TokenIssuer signs and verifies HS256 access tokens whose subject is the user id.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. The secret must not be empty.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if strings.TrimSpace(secret) == "" {
		panic("auth: token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a new access token for userID.
func (t *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates an access token and returns its subject.
func (t *TokenIssuer) Verify(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
