package gotrue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"github.com/aussiebroadwan/gotrue-go/pkg/jwtx"
)

// ResetPasswordOptions tunes the recovery email.
type ResetPasswordOptions struct {
	RedirectTo   string
	CaptchaToken string
}

// GetSession returns a session valid right now, refreshing it first when it
// is close to expiry. Returns ErrSessionNotFound when signed out.
func (c *Client) GetSession(ctx context.Context) (*authapi.Session, error) {
	return c.manager.Session(ctx)
}

// Session returns the stored session without checking or refreshing it, or
// nil. Good enough to decide what to render at start-up; never use it to
// authenticate a request.
func (c *Client) Session(ctx context.Context) *authapi.Session {
	return c.manager.Stored(ctx)
}

// RefreshSession exchanges a refresh token for a new session and stores it.
// With an empty refreshToken the stored session is refreshed, sharing any
// refresh already in flight.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*authapi.Session, error) {
	if refreshToken == "" {
		return c.manager.Refresh(ctx)
	}

	s, err := c.api.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := c.adopt(ctx, s, events.TokenRefreshed); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSession adopts tokens obtained elsewhere. The access token's exp claim
// is read without verifying its signature: an expired token is replaced
// through refreshToken, a live one is completed with the user it belongs to.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*authapi.Session, error) {
	exp, err := jwtx.ExpiryOf(accessToken)
	if errors.Is(err, jwtx.ErrMissingExp) {
		return nil, ErrMissingExpClaim
	}
	if err != nil {
		return nil, err
	}

	now := c.now()

	var s *authapi.Session
	if exp <= now.Unix() {
		s, err = c.api.RefreshAccessToken(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
	} else {
		user, err := c.api.GetUser(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		s = &authapi.Session{
			AccessToken:  accessToken,
			TokenType:    "bearer",
			ExpiresIn:    float64(exp - now.Unix()),
			RefreshToken: refreshToken,
			User:         *user,
		}
	}

	if err := c.adopt(ctx, s, events.SignedIn); err != nil {
		return nil, err
	}
	return s, nil
}

// GetUser fetches the signed in user's current profile.
func (c *Client) GetUser(ctx context.Context) (*authapi.User, error) {
	s, err := c.manager.Session(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.GetUser(ctx, s.AccessToken)
}

// Update changes the signed in user's attributes, stores the returned user
// in the session and publishes UserUpdated.
func (c *Client) Update(ctx context.Context, attrs authapi.UserAttributes) (*authapi.User, error) {
	s, err := c.manager.Session(ctx)
	if err != nil {
		return nil, err
	}

	user, err := c.api.UpdateUser(ctx, s.AccessToken, attrs)
	if err != nil {
		return nil, err
	}

	if err := c.manager.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store updated user: %w", err)
	}

	s.User = *user
	c.publish(events.UserUpdated, s)
	return user, nil
}

// SignOut revokes the session remotely and clears it locally. Local state is
// always cleared and SignedOut always published; a failed remote call is
// only logged.
func (c *Client) SignOut(ctx context.Context) {
	s, err := c.manager.Session(ctx)
	switch {
	case err == nil:
		if rerr := c.api.SignOut(ctx, s.AccessToken); rerr != nil {
			c.logger.Warn("remote sign out failed", "error", rerr)
		}
	case !errors.Is(err, ErrSessionNotFound):
		c.logger.Warn("no usable session to revoke", "error", err)
	}

	c.manager.Remove(ctx)
	c.publish(events.SignedOut, nil)
}

// ResetPasswordForEmail sends a password recovery link. Opening it leads to
// SessionFromURL, which publishes PasswordRecovery.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string, opts ResetPasswordOptions) error {
	if email == "" {
		return ErrMissingIdentifier
	}

	return c.api.ResetPasswordForEmail(ctx, authapi.RecoverParams{
		Email:    email,
		Security: security(opts.CaptchaToken),
	}, opts.RedirectTo)
}
