package authapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/anyjson"
	"github.com/google/uuid"
)

// ============================================================================
// Session & User
// ============================================================================

// Session is one credential grant issued by the auth service.
type Session struct {
	// AccessToken is the short-lived bearer JWT
	AccessToken string `json:"access_token"`

	// TokenType is usually "bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds from issuance
	ExpiresIn float64 `json:"expires_in"`

	// RefreshToken is exchanged for a new access token when this one expires
	RefreshToken string `json:"refresh_token"`

	// User is the principal's profile at issuance or last update
	User User `json:"user"`

	// ProviderToken is the upstream OAuth provider's access token, if any
	ProviderToken string `json:"provider_token,omitempty"`

	// ProviderRefreshToken is the upstream OAuth provider's refresh token, if any
	ProviderRefreshToken string `json:"provider_refresh_token,omitempty"`
}

// ExpiresInDuration returns ExpiresIn as a time.Duration.
func (s *Session) ExpiresInDuration() time.Duration {
	return time.Duration(s.ExpiresIn * float64(time.Second))
}

// Clone returns a deep copy of s, or nil when s is nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.User = *s.User.Clone()
	return &cp
}

// User is the auth service's profile record.
type User struct {
	ID           uuid.UUID                `json:"id"`
	Aud          string                   `json:"aud"`
	Role         string                   `json:"role,omitempty"`
	Email        *string                  `json:"email,omitempty"`
	Phone        *string                  `json:"phone,omitempty"`
	AppMetadata  map[string]anyjson.Value `json:"app_metadata"`
	UserMetadata map[string]anyjson.Value `json:"user_metadata"`

	NewEmail   *string `json:"new_email,omitempty"`
	ActionLink *string `json:"action_link,omitempty"`

	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty"`
	RecoverySentAt     *time.Time `json:"recovery_sent_at,omitempty"`
	EmailChangeSentAt  *time.Time `json:"email_change_sent_at,omitempty"`
	InvitedAt          *time.Time `json:"invited_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	EmailConfirmedAt   *time.Time `json:"email_confirmed_at,omitempty"`
	PhoneConfirmedAt   *time.Time `json:"phone_confirmed_at,omitempty"`
	LastSignInAt       *time.Time `json:"last_sign_in_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Identities []UserIdentity `json:"identities,omitempty"`
}

// Clone returns a deep copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Email = clonePtr(u.Email)
	cp.Phone = clonePtr(u.Phone)
	cp.AppMetadata = anyjson.CloneMap(u.AppMetadata)
	cp.UserMetadata = anyjson.CloneMap(u.UserMetadata)
	cp.NewEmail = clonePtr(u.NewEmail)
	cp.ActionLink = clonePtr(u.ActionLink)
	cp.ConfirmationSentAt = clonePtr(u.ConfirmationSentAt)
	cp.RecoverySentAt = clonePtr(u.RecoverySentAt)
	cp.EmailChangeSentAt = clonePtr(u.EmailChangeSentAt)
	cp.InvitedAt = clonePtr(u.InvitedAt)
	cp.ConfirmedAt = clonePtr(u.ConfirmedAt)
	cp.EmailConfirmedAt = clonePtr(u.EmailConfirmedAt)
	cp.PhoneConfirmedAt = clonePtr(u.PhoneConfirmedAt)
	cp.LastSignInAt = clonePtr(u.LastSignInAt)

	if u.Identities != nil {
		cp.Identities = make([]UserIdentity, len(u.Identities))
		for i, id := range u.Identities {
			id.IdentityData = anyjson.CloneMap(id.IdentityData)
			id.UpdatedAt = clonePtr(id.UpdatedAt)
			cp.Identities[i] = id
		}
	}
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// EmailConfirmed reports whether the user's email address has been verified.
func (u *User) EmailConfirmed() bool {
	return u.ConfirmedAt != nil || u.EmailConfirmedAt != nil
}

// PhoneConfirmed reports whether the user's phone number has been verified.
func (u *User) PhoneConfirmed() bool {
	return u.PhoneConfirmedAt != nil
}

// UserIdentity links a user to one sign-in provider.
type UserIdentity struct {
	ID           string                   `json:"id"`
	UserID       uuid.UUID                `json:"user_id"`
	IdentityData map[string]anyjson.Value `json:"identity_data,omitempty"`
	Provider     string                   `json:"provider"`
	CreatedAt    time.Time                `json:"created_at"`
	LastSignInAt time.Time                `json:"last_sign_in_at"`
	UpdatedAt    *time.Time               `json:"updated_at,omitempty"`
}

// AuthResponse is returned by endpoints that either sign the user in or only
// create the user pending confirmation. Exactly one field is set.
type AuthResponse struct {
	Session *Session
	User    *User
}

// UnmarshalJSON decides between the two shapes by the presence of an access token.
func (r *AuthResponse) UnmarshalJSON(data []byte) error {
	var shape struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}

	if shape.AccessToken != "" {
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode session: %w", err)
		}
		r.Session, r.User = &s, nil
		return nil
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("failed to decode user: %w", err)
	}
	r.Session, r.User = nil, &u
	return nil
}

// MarshalJSON writes whichever variant is set.
func (r AuthResponse) MarshalJSON() ([]byte, error) {
	if r.Session != nil {
		return json.Marshal(r.Session)
	}
	return json.Marshal(r.User)
}

// ============================================================================
// Providers & OTP
// ============================================================================

// Provider names an external identity provider.
type Provider string

const (
	ProviderApple     Provider = "apple"
	ProviderAzure     Provider = "azure"
	ProviderBitbucket Provider = "bitbucket"
	ProviderDiscord   Provider = "discord"
	ProviderEmail     Provider = "email"
	ProviderFacebook  Provider = "facebook"
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderGoogle    Provider = "google"
	ProviderKeycloak  Provider = "keycloak"
	ProviderLinkedIn  Provider = "linkedin"
	ProviderNotion    Provider = "notion"
	ProviderSlack     Provider = "slack"
	ProviderSpotify   Provider = "spotify"
	ProviderTwitch    Provider = "twitch"
	ProviderTwitter   Provider = "twitter"
	ProviderWorkOS    Provider = "workos"
)

// OTPType selects what a one-time token verifies.
type OTPType string

const (
	OTPTypeSMS         OTPType = "sms"
	OTPTypePhoneChange OTPType = "phone_change"
	OTPTypeSignup      OTPType = "signup"
	OTPTypeInvite      OTPType = "invite"
	OTPTypeMagicLink   OTPType = "magiclink"
	OTPTypeRecovery    OTPType = "recovery"
	OTPTypeEmailChange OTPType = "email_change"
)

// ============================================================================
// Request Bodies
// ============================================================================

// MetaSecurity carries captcha data forwarded to the service.
type MetaSecurity struct {
	HCaptchaToken string `json:"hcaptcha_token,omitempty"`
}

// SignUpRequest is the body of POST /signup.
type SignUpRequest struct {
	Email    string                   `json:"email,omitempty"`
	Phone    string                   `json:"phone,omitempty"`
	Password string                   `json:"password"`
	Data     map[string]anyjson.Value `json:"data,omitempty"`
	Security *MetaSecurity            `json:"gotrue_meta_security,omitempty"`
}

// UserCredentials is the body of the password and refresh token grants.
type UserCredentials struct {
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// OpenIDConnectCredentials is the body of the id_token grant.
type OpenIDConnectCredentials struct {
	IDToken  string   `json:"id_token"`
	Nonce    string   `json:"nonce,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
	Issuer   string   `json:"issuer,omitempty"`
	Provider Provider `json:"provider,omitempty"`
}

// PKCEGrant is the body of the pkce grant.
type PKCEGrant struct {
	AuthCode     string `json:"auth_code"`
	CodeVerifier string `json:"code_verifier"`
}

// OTPParams is the body of POST /otp.
type OTPParams struct {
	Email      string                   `json:"email,omitempty"`
	Phone      string                   `json:"phone,omitempty"`
	CreateUser bool                     `json:"create_user"`
	Data       map[string]anyjson.Value `json:"data,omitempty"`
	Security   *MetaSecurity            `json:"gotrue_meta_security,omitempty"`
}

// VerifyOTPParams is the body of POST /verify.
type VerifyOTPParams struct {
	Email    string        `json:"email,omitempty"`
	Phone    string        `json:"phone,omitempty"`
	Token    string        `json:"token"`
	Type     OTPType       `json:"type"`
	Security *MetaSecurity `json:"gotrue_meta_security,omitempty"`
}

// UserAttributes is the body of PUT /user. Only set fields are changed.
type UserAttributes struct {
	Email            *string                  `json:"email,omitempty"`
	Phone            *string                  `json:"phone,omitempty"`
	Password         *string                  `json:"password,omitempty"`
	EmailChangeToken *string                  `json:"email_change_token,omitempty"`
	Data             map[string]anyjson.Value `json:"data,omitempty"`
}

// RecoverParams is the body of POST /recover.
type RecoverParams struct {
	Email    string        `json:"email"`
	Security *MetaSecurity `json:"gotrue_meta_security,omitempty"`
}

// AuthorizeOptions shapes the /authorize URL handed to a browser.
type AuthorizeOptions struct {
	// Scopes requested from the upstream provider
	Scopes []string

	// RedirectTo is where the service sends the browser afterwards
	RedirectTo string

	// QueryParams are extra provider specific parameters
	QueryParams map[string]string

	// CodeChallenge enables the PKCE flow when set
	CodeChallenge string

	// CodeChallengeMethod defaults to "s256" when CodeChallenge is set
	CodeChallengeMethod string
}
