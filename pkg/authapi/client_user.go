package authapi

import (
	"context"
	"net/http"
)

// GetUser returns the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdateUser changes the attributes set in attrs and returns the new record.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, "/user", nil, attrs, accessToken)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// SignOut revokes the refresh tokens behind accessToken on the server.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/logout", nil, nil, accessToken)
	if err != nil {
		return err
	}

	return checkStatus(resp)
}
