package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrMissingExp = errors.New("jwtx: missing exp claim")
)

// Claims are the access-token claims the auth service issues. Only what the
// client reads is modelled; unknown claims are ignored.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`

	// SessionID identifies the server side session behind the token
	SessionID string `json:"session_id,omitempty"`

	// AAL is the authenticator assurance level ("aal1", "aal2")
	AAL string `json:"aal,omitempty"`

	// AMR lists how the user authenticated, newest last
	AMR []AMREntry `json:"amr,omitempty"`
}

// AMREntry is one authentication method reference.
type AMREntry struct {
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
}

// Expiry returns the exp claim or ErrMissingExp.
func (c *Claims) Expiry() (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, ErrMissingExp
	}
	return c.ExpiresAt.Time, nil
}

// ExpiredAt reports whether the token is expired at now, treating it as
// expired leeway early. Tokens without exp are never expired.
func (c *Claims) ExpiredAt(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Add(-leeway))
}
