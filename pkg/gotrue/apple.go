package gotrue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/cryptox"
)

// Scopes requested from Sign in with Apple.
const (
	AppleScopeEmail    = "email"
	AppleScopeFullName = "full_name"
)

// AppleAuthorizationRequest is what the platform's Apple sign-in prompt is
// started with.
type AppleAuthorizationRequest struct {
	Scopes []string

	// Nonce is the hex SHA-256 of the nonce later sent to the auth service.
	// Apple embeds it in the identity token it signs.
	Nonce string
}

// AppleAuthorizer runs the platform's Apple sign-in UI and returns the
// identity token it produced.
type AppleAuthorizer interface {
	Authorize(ctx context.Context, req AppleAuthorizationRequest) (idToken string, err error)
}

// AppleAuthorizerFunc adapts a function to AppleAuthorizer.
type AppleAuthorizerFunc func(ctx context.Context, req AppleAuthorizationRequest) (string, error)

// Authorize calls f.
func (f AppleAuthorizerFunc) Authorize(ctx context.Context, req AppleAuthorizationRequest) (string, error) {
	return f(ctx, req)
}

// SignInWithApple asks authorizer for an Apple identity token bound to a
// fresh nonce and exchanges it for a session. The authorizer sees only the
// hashed nonce; the service receives the raw one and checks it against the
// token.
func (c *Client) SignInWithApple(ctx context.Context, authorizer AppleAuthorizer) (*authapi.Session, error) {
	if authorizer == nil {
		return nil, errors.New("gotrue: apple authorizer is required")
	}

	raw, hashed, err := cryptox.NewNonce()
	if err != nil {
		return nil, err
	}

	idToken, err := authorizer.Authorize(ctx, AppleAuthorizationRequest{
		Scopes: []string{AppleScopeEmail, AppleScopeFullName},
		Nonce:  hashed,
	})
	if err != nil {
		return nil, fmt.Errorf("apple authorization failed: %w", err)
	}
	if idToken == "" {
		return nil, errors.New("gotrue: apple authorization returned no identity token")
	}

	return c.SignInWithIDToken(ctx, authapi.OpenIDConnectCredentials{
		IDToken:  idToken,
		Nonce:    raw,
		Provider: authapi.ProviderApple,
	})
}
