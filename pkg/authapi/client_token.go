package authapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SignInWithPassword exchanges an email or phone plus password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, creds UserCredentials) (*Session, error) {
	if creds.Email == "" && creds.Phone == "" {
		return nil, fmt.Errorf("email or phone is required")
	}
	return c.requestToken(ctx, "password", creds)
}

// RefreshAccessToken mints a new session from a refresh token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	return c.requestToken(ctx, "refresh_token", UserCredentials{RefreshToken: refreshToken})
}

// SignInWithIDToken exchanges an OpenID Connect ID token issued by an external
// provider (e.g. Apple) for a session.
func (c *Client) SignInWithIDToken(ctx context.Context, creds OpenIDConnectCredentials) (*Session, error) {
	if creds.IDToken == "" {
		return nil, fmt.Errorf("id token is required")
	}
	return c.requestToken(ctx, "id_token", creds)
}

// ExchangeCodeForSession completes a PKCE authorization by trading the auth
// code and the verifier that produced its challenge for a session.
func (c *Client) ExchangeCodeForSession(ctx context.Context, authCode, codeVerifier string) (*Session, error) {
	if authCode == "" || codeVerifier == "" {
		return nil, fmt.Errorf("auth code and code verifier are required")
	}
	return c.requestToken(ctx, "pkce", PKCEGrant{AuthCode: authCode, CodeVerifier: codeVerifier})
}

// requestToken posts body to /token with the given grant type.
func (c *Client) requestToken(ctx context.Context, grantType string, body any) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/token", url.Values{"grant_type": {grantType}}, body, "")
	if err != nil {
		return nil, err
	}

	var session Session
	if err := decodeJSON(resp, &session); err != nil {
		return nil, err
	}

	return &session, nil
}
