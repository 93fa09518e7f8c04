package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/idx"
)

// Transport logs every outbound request at debug level and failures at warn.
// Each request is tagged with a req_id, sent as X-Request-ID and attached to
// the request context logger.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = FromContext(r.Context())
	}

	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		if id, ok := RequestID(r.Context()); ok {
			reqID = id
		} else {
			reqID = idx.New().String()
		}
		// RoundTrippers must not modify the caller's request
		r = r.Clone(WithContext(r.Context(), logger.With("req_id", reqID)))
		r.Header.Set("X-Request-ID", reqID)
	}

	// Paths only, query strings are not logged.
	logger = logger.With(
		"req_id", reqID,
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
	)

	start := time.Now()
	resp, err := base.RoundTrip(r)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelWarn
	}
	logger.Log(r.Context(), level, "http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)

	return resp, nil
}
