package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/gotrue"
)

// SessionSource is the part of the auth client the keep-alive needs.
type SessionSource interface {
	GetSession(ctx context.Context) (*authapi.Session, error)
}

// KeepAlive periodically asks for the current session so it is refreshed
// before it expires, even while nothing else is using it.
type KeepAlive struct {
	Source   SessionSource
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewKeepAlive creates a keep-alive with the given interval.
// If interval is 0 or negative, defaults to 30 seconds.
func NewKeepAlive(source SessionSource, logger *slog.Logger, interval time.Duration) *KeepAlive {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &KeepAlive{
		Source:   source,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (k *KeepAlive) Start() {
	go k.run()
	k.Logger.Debug("session keep-alive started", "interval", k.Interval)
}

// Stop shuts down the background worker and waits for an in-progress check.
func (k *KeepAlive) Stop() {
	close(k.stopCh)
	<-k.doneCh
	k.Logger.Debug("session keep-alive stopped")
}

func (k *KeepAlive) run() {
	defer close(k.doneCh)

	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	// Check immediately on startup
	k.check()

	for {
		select {
		case <-ticker.C:
			k.check()
		case <-k.stopCh:
			return
		}
	}
}

// check refreshes the session if it is near expiry. Failures are logged and
// retried on the next tick; the stale session stays stored.
func (k *KeepAlive) check() {
	ctx, cancel := context.WithTimeout(context.Background(), k.Interval)
	defer cancel()

	s, err := k.Source.GetSession(ctx)
	switch {
	case errors.Is(err, gotrue.ErrSessionNotFound):
		k.Logger.Debug("keep-alive: signed out")
	case err != nil:
		k.Logger.Warn("keep-alive: session refresh failed", "error", err)
	default:
		k.Logger.Debug("keep-alive: session valid", "user_id", s.User.ID)
	}
}
