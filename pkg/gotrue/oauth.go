package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/credstore"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"golang.org/x/oauth2"
)

// OAuthOptions shapes an OAuth sign-in URL.
type OAuthOptions struct {
	Scopes      []string
	RedirectTo  string
	QueryParams map[string]string
}

// codeVerifierKey is where the PKCE verifier waits for the callback.
func (c *Client) codeVerifierKey() string {
	return c.manager.StorageKey() + "-code-verifier"
}

// GetOAuthSignInURL returns the URL that starts an OAuth sign-in with
// provider. Open it in a browser; the service redirects to
// opts.RedirectTo, which the application hands to SessionFromURL.
//
// In the PKCE flow a new code verifier is stored and its S256 challenge is
// added to the URL.
func (c *Client) GetOAuthSignInURL(ctx context.Context, provider authapi.Provider, opts OAuthOptions) (*url.URL, error) {
	authorize := authapi.AuthorizeOptions{
		Scopes:      opts.Scopes,
		RedirectTo:  opts.RedirectTo,
		QueryParams: opts.QueryParams,
	}

	if c.flow == FlowPKCE {
		verifier := oauth2.GenerateVerifier()
		if err := c.store.Set(ctx, c.codeVerifierKey(), []byte(verifier)); err != nil {
			return nil, fmt.Errorf("failed to store code verifier: %w", err)
		}
		authorize.CodeChallenge = oauth2.S256ChallengeFromVerifier(verifier)
		authorize.CodeChallengeMethod = "s256"
	}

	return c.api.AuthorizeURL(provider, authorize)
}

// ExchangeCodeForSession completes a PKCE sign-in with the code from the
// callback URL and the verifier stored by GetOAuthSignInURL. The verifier is
// single use and is deleted whatever the outcome.
func (c *Client) ExchangeCodeForSession(ctx context.Context, authCode string) (*authapi.Session, error) {
	if authCode == "" {
		return nil, fmt.Errorf("%w: empty auth code", ErrBadURL)
	}

	key := c.codeVerifierKey()
	verifier, err := c.store.Get(ctx, key)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, ErrCodeVerifierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load code verifier: %w", err)
	}

	s, err := c.api.ExchangeCodeForSession(ctx, authCode, string(verifier))
	if derr := c.store.Delete(ctx, key); derr != nil {
		c.logger.Warn("failed to delete code verifier", "error", derr)
	}
	if err != nil {
		return nil, err
	}

	if err := c.adopt(ctx, s, events.SignedIn); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionFromURL completes a sign-in from the URL the service redirected to
// (OAuth, magic link, recovery or invite). Parameters are read from the
// fragment, or from the query when the fragment is empty.
//
// An error reported by the service in the URL is returned as *APIError. On
// success the session is stored, SignedIn is published, and
// PasswordRecovery follows for recovery links.
func (c *Client) SessionFromURL(ctx context.Context, u *url.URL) (*authapi.Session, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil url", ErrBadURL)
	}

	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	if len(params) == 0 {
		params = u.Query()
	}

	if desc := params.Get("error_description"); desc != "" {
		code := params.Get("error_code")
		if code == "" {
			code = params.Get("error")
		}
		return nil, &authapi.APIError{Code: code, Message: desc}
	}

	if code := params.Get("code"); code != "" && c.flow == FlowPKCE {
		return c.ExchangeCodeForSession(ctx, code)
	}

	required := func(name string) (string, error) {
		v := params.Get(name)
		if v == "" {
			return "", fmt.Errorf("%w: missing %s", ErrBadURL, name)
		}
		return v, nil
	}

	accessToken, err := required("access_token")
	if err != nil {
		return nil, err
	}
	rawExpiresIn, err := required("expires_in")
	if err != nil {
		return nil, err
	}
	refreshToken, err := required("refresh_token")
	if err != nil {
		return nil, err
	}
	tokenType, err := required("token_type")
	if err != nil {
		return nil, err
	}

	expiresIn, err := strconv.ParseFloat(rawExpiresIn, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expires_in %q", ErrBadURL, rawExpiresIn)
	}

	user, err := c.api.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	s := &authapi.Session{
		AccessToken:          accessToken,
		TokenType:            tokenType,
		ExpiresIn:            expiresIn,
		RefreshToken:         refreshToken,
		User:                 *user,
		ProviderToken:        params.Get("provider_token"),
		ProviderRefreshToken: params.Get("provider_refresh_token"),
	}

	if err := c.adopt(ctx, s, events.SignedIn); err != nil {
		return nil, err
	}
	if params.Get("type") == "recovery" {
		c.publish(events.PasswordRecovery, s)
	}
	return s, nil
}
