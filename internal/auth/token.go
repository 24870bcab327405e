package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sujalkunwar22/backend/internal/models"
)

// Claims is the bearer token payload. Subject carries the user ID.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	Secret []byte
	TTL    time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewIssuer constructs an Issuer for secret and ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{Secret: []byte(secret), TTL: ttl}
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Issue returns a signed token for userID and role.
func (i *Issuer) Issue(userID string, role models.Role) (string, error) {
	if userID == "" {
		return "", errors.New("auth: issue: empty user id")
	}
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(i.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return s, nil
}

// Verify parses token and returns its claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if i.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(i.Now))
	}
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: verify token: %w", err)
	}
	if !t.Valid || claims.Subject == "" {
		return nil, errors.New("auth: verify token: invalid claims")
	}
	return claims, nil
}
