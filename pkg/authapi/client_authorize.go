package authapi

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthorizeURL builds the /authorize URL that starts an OAuth sign-in with
// provider. The URL is meant for a browser; the client never requests it.
func (c *Client) AuthorizeURL(provider Provider, opts AuthorizeOptions) (*url.URL, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}

	u, err := url.Parse(c.BaseURL + "/authorize")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	q := url.Values{}
	q.Set("provider", string(provider))
	if len(opts.Scopes) > 0 {
		q.Set("scopes", strings.Join(opts.Scopes, " "))
	}
	if opts.RedirectTo != "" {
		q.Set("redirect_to", opts.RedirectTo)
	}
	if opts.CodeChallenge != "" {
		method := opts.CodeChallengeMethod
		if method == "" {
			method = "s256"
		}
		q.Set("code_challenge", opts.CodeChallenge)
		q.Set("code_challenge_method", method)
	}
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}

	u.RawQuery = q.Encode()
	return u, nil
}
