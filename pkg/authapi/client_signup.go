package authapi

import (
	"context"
	"fmt"
	"net/http"
)

// SignUp creates a user. The response holds a session when the service
// auto-confirms new users and only the user otherwise.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest, redirectTo string) (*AuthResponse, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, fmt.Errorf("email or phone is required")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/signup", redirectQuery(redirectTo), req, "")
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ResetPasswordForEmail sends a password recovery email.
func (c *Client) ResetPasswordForEmail(ctx context.Context, params RecoverParams, redirectTo string) error {
	if params.Email == "" {
		return fmt.Errorf("email is required")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/recover", redirectQuery(redirectTo), params, "")
	if err != nil {
		return err
	}

	return checkStatus(resp)
}
