package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseUnverified decodes a JWT's claims without checking its signature.
//
// Clients never hold the service's signing key, so this is only suitable for
// reading hints such as exp from a token the client already trusts (one it
// just received over TLS or was handed by the application). Never use it to
// make authorization decisions.
func ParseUnverified(token string) (*Claims, error) {
	var claims Claims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &claims, nil
}

// ExpiryOf returns the exp claim of an unverified token.
func ExpiryOf(token string) (int64, error) {
	claims, err := ParseUnverified(token)
	if err != nil {
		return 0, err
	}

	exp, err := claims.Expiry()
	if err != nil {
		return 0, err
	}

	return exp.Unix(), nil
}
