package gotrue

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gotrue-go/pkg/jwtx"
	"github.com/aussiebroadwan/gotrue-go/pkg/session"
)

var (
	// ErrSessionNotFound means no session is stored. It is the expected
	// state of a signed out application, not a failure.
	ErrSessionNotFound = session.ErrSessionNotFound

	// ErrBadURL means a callback URL is malformed or lacks required parameters.
	ErrBadURL = errors.New("gotrue: bad callback url")

	// ErrMissingExpClaim means an access token has no usable exp claim.
	ErrMissingExpClaim = fmt.Errorf("gotrue: access token has no expiry: %w", jwtx.ErrMissingExp)

	// ErrMissingIdentifier means neither an email address nor a phone number was given.
	ErrMissingIdentifier = errors.New("gotrue: email or phone is required")

	// ErrCodeVerifierNotFound means a PKCE code arrived but no verifier was
	// stored by GetOAuthSignInURL.
	ErrCodeVerifierNotFound = errors.New("gotrue: no pkce code verifier stored")
)
