package authapi

import (
	"context"
	"fmt"
	"net/http"
)

// SendOTP asks the service to send a one-time password or magic link to an
// email address or phone number.
func (c *Client) SendOTP(ctx context.Context, params OTPParams, redirectTo string) error {
	if params.Email == "" && params.Phone == "" {
		return fmt.Errorf("email or phone is required")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/otp", redirectQuery(redirectTo), params, "")
	if err != nil {
		return err
	}

	return checkStatus(resp)
}

// VerifyOTP checks a one-time token.
func (c *Client) VerifyOTP(ctx context.Context, params VerifyOTPParams, redirectTo string) (*AuthResponse, error) {
	if params.Token == "" {
		return nil, fmt.Errorf("token is required")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/verify", redirectQuery(redirectTo), params, "")
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
