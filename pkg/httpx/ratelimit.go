// Package httpx holds outbound HTTP plumbing shared by the SDK's clients.
package httpx

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// DefaultLimit keeps a single client well under the auth service's own
// per-IP limits for token and OTP endpoints.
var DefaultLimit = RateLimitConfig{
	RequestsPerWindow: 30,
	Window:            time.Minute,
	Burst:             10,
}

// Enabled reports whether the config describes a usable limit.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: {prefix}_RATELIMIT_{field}
// For example: GOTRUE_RATELIMIT_REQUESTS, GOTRUE_RATELIMIT_WINDOW_SEC, GOTRUE_RATELIMIT_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	// Parse requests per window, 0 disables limiting
	if val := os.Getenv(prefix + "_RATELIMIT_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests >= 0 {
			config.RequestsPerWindow = requests
		}
	}

	// Parse window duration in seconds
	if val := os.Getenv(prefix + "_RATELIMIT_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	// Parse burst size
	if val := os.Getenv(prefix + "_RATELIMIT_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// LimitedTransport is an http.RoundTripper that waits for a token from a
// per-host bucket before each request. Waiting honours the request context,
// so a cancelled caller stops waiting immediately.
type LimitedTransport struct {
	Base http.RoundTripper

	limit    rate.Limit
	burst    int
	limiters sync.Map // map[string]*rate.Limiter
}

// NewLimitedTransport wraps base (http.DefaultTransport when nil). A disabled
// config returns a transport that never waits.
func NewLimitedTransport(base http.RoundTripper, config RateLimitConfig) *LimitedTransport {
	t := &LimitedTransport{Base: base, limit: rate.Inf, burst: 1}
	if config.Enabled() {
		// Calculate rate per second from requests per window
		t.limit = rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds())
		t.burst = max(config.Burst, 1)
	}
	return t
}

// getLimiter retrieves or creates the limiter for host.
func (t *LimitedTransport) getLimiter(host string) *rate.Limiter {
	// Fast path: limiter already exists
	if limiter, ok := t.limiters.Load(host); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := t.limiters.LoadOrStore(host, rate.NewLimiter(t.limit, t.burst))
	return actual.(*rate.Limiter)
}

func (t *LimitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	limiter := t.getLimiter(r.URL.Host)
	if !limiter.Allow() {
		slogx.FromContext(r.Context()).Debug("rate limit: waiting for token", "host", r.URL.Host)
		if err := limiter.Wait(r.Context()); err != nil {
			return nil, err
		}
	}

	return base.RoundTrip(r)
}
