package authapi

import (
	"net/http"
	"strings"
	"time"
)

// Version is reported to the service in the X-Client-Info header.
const Version = "0.1.0"

// DefaultTimeout bounds each request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// Client performs the auth service's remote operations. It holds no session
// state; callers pass the access token for operations that need one.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Headers are sent with every request. NewClient fills in apikey,
	// Authorization and X-Client-Info.
	Headers map[string]string

	apiKey string
}

// NewClient creates a client for the service rooted at baseURL
// (e.g. "https://project.example.co/auth/v1").
func NewClient(baseURL, apiKey string) *Client {
	headers := map[string]string{
		"X-Client-Info": "gotrue-go/" + Version,
	}
	if apiKey != "" {
		headers["apikey"] = apiKey
		headers["Authorization"] = "Bearer " + apiKey
	}

	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		Headers: headers,
		apiKey:  apiKey,
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to install
// transports for logging or rate limiting. It returns c for chaining.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.HTTPClient = hc
	}
	return c
}
