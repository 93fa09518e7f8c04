package gotrue

import (
	"context"

	"github.com/aussiebroadwan/gotrue-go/pkg/anyjson"
	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
)

// ============================================================================
// Parameters
// ============================================================================

// SignUpParams registers a new user by email or phone.
type SignUpParams struct {
	Email    string
	Phone    string
	Password string

	// Data becomes the user's user_metadata
	Data map[string]anyjson.Value

	CaptchaToken string

	// RedirectTo is the confirmation link target (email sign-ups only)
	RedirectTo string
}

// PasswordCredentials signs in with a password and either Email or Phone.
type PasswordCredentials struct {
	Email    string
	Phone    string
	Password string
}

// OTPParams requests a one-time password by email (magic link) or SMS.
type OTPParams struct {
	Email string
	Phone string

	// DisableSignUp stops the service from creating unknown users
	DisableSignUp bool

	Data         map[string]anyjson.Value
	CaptchaToken string
	RedirectTo   string
}

// VerifyOTPParams checks a one-time password.
type VerifyOTPParams struct {
	Email        string
	Phone        string
	Token        string
	Type         authapi.OTPType
	CaptchaToken string
	RedirectTo   string
}

// ============================================================================
// Flows
// ============================================================================

// SignUp creates a user. When the service signs the user straight in (no
// confirmation required) the session is stored and SignedIn is published;
// otherwise the response only carries the pending user.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (*authapi.AuthResponse, error) {
	if params.Email == "" && params.Phone == "" {
		return nil, ErrMissingIdentifier
	}

	c.manager.Remove(ctx)

	redirectTo := params.RedirectTo
	if params.Email == "" {
		redirectTo = ""
	}

	resp, err := c.api.SignUp(ctx, authapi.SignUpRequest{
		Email:    params.Email,
		Phone:    params.Phone,
		Password: params.Password,
		Data:     params.Data,
		Security: security(params.CaptchaToken),
	}, redirectTo)
	if err != nil {
		return nil, err
	}

	if resp.Session != nil {
		if err := c.adopt(ctx, resp.Session, events.SignedIn); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// SignInWithPassword signs in with an email or phone and a password.
//
// The returned session is only stored and announced when the matching
// identifier is confirmed on the returned user. An unconfirmed account still
// gets its session back, but the client stays signed out.
func (c *Client) SignInWithPassword(ctx context.Context, creds PasswordCredentials) (*authapi.Session, error) {
	if creds.Email == "" && creds.Phone == "" {
		return nil, ErrMissingIdentifier
	}

	c.manager.Remove(ctx)

	s, err := c.api.SignInWithPassword(ctx, authapi.UserCredentials{
		Email:    creds.Email,
		Phone:    creds.Phone,
		Password: creds.Password,
	})
	if err != nil {
		return nil, err
	}

	confirmed := s.User.PhoneConfirmed()
	if creds.Email != "" {
		confirmed = s.User.EmailConfirmed()
	}
	if !confirmed {
		c.logger.Info("signed in user is not confirmed, session not stored", "user_id", s.User.ID)
		return s, nil
	}

	if err := c.adopt(ctx, s, events.SignedIn); err != nil {
		return nil, err
	}
	return s, nil
}

// SignInWithOTP sends a magic link (email) or a one-time code (phone). The
// user finishes with VerifyOTP or by opening the link.
func (c *Client) SignInWithOTP(ctx context.Context, params OTPParams) error {
	if params.Email == "" && params.Phone == "" {
		return ErrMissingIdentifier
	}

	c.manager.Remove(ctx)

	return c.api.SendOTP(ctx, authapi.OTPParams{
		Email:      params.Email,
		Phone:      params.Phone,
		CreateUser: !params.DisableSignUp,
		Data:       params.Data,
		Security:   security(params.CaptchaToken),
	}, params.RedirectTo)
}

// VerifyOTP checks a one-time password and stores the resulting session.
func (c *Client) VerifyOTP(ctx context.Context, params VerifyOTPParams) (*authapi.AuthResponse, error) {
	if params.Email == "" && params.Phone == "" {
		return nil, ErrMissingIdentifier
	}

	c.manager.Remove(ctx)

	resp, err := c.api.VerifyOTP(ctx, authapi.VerifyOTPParams{
		Email:    params.Email,
		Phone:    params.Phone,
		Token:    params.Token,
		Type:     params.Type,
		Security: security(params.CaptchaToken),
	}, params.RedirectTo)
	if err != nil {
		return nil, err
	}

	if resp.Session != nil {
		if err := c.adopt(ctx, resp.Session, events.SignedIn); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// SignInWithIDToken exchanges an OpenID Connect ID token issued by a
// supported provider for a session.
func (c *Client) SignInWithIDToken(ctx context.Context, creds authapi.OpenIDConnectCredentials) (*authapi.Session, error) {
	c.manager.Remove(ctx)

	s, err := c.api.SignInWithIDToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := c.adopt(ctx, s, events.SignedIn); err != nil {
		return nil, err
	}
	return s, nil
}
