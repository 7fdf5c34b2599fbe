package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token cannot be decoded.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity claims the worksite server puts in its tokens.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken decodes the claims of a server-issued JWT without checking
// the signature. The client does not hold the server's signing key; it
// only reads identity and expiry, and the server still verifies every
// request.
func ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// ExpiresAtTime returns the token expiry, or the zero time when the token
// does not carry one.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
