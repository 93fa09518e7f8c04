// Package events broadcasts auth state changes to any number of subscribers.
//
// Publish never blocks: every subscriber owns an unbounded FIFO queue drained
// by its own goroutine, so a slow or panicking subscriber cannot delay or
// break delivery to the others. Each subscriber sees events in publish order.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/idx"
)

// Event is an auth state change.
type Event string

const (
	// SignedIn follows a sign-in, a verified OTP or an adopted callback session.
	SignedIn Event = "SIGNED_IN"
	// SignedOut follows SignOut. Its session is nil.
	SignedOut Event = "SIGNED_OUT"
	// TokenRefreshed follows a stored refresh of the access token.
	TokenRefreshed Event = "TOKEN_REFRESHED"
	// UserUpdated follows a change to the user's attributes.
	UserUpdated Event = "USER_UPDATED"
	// UserDeleted is reserved for a deleted account. The client never emits it.
	UserDeleted Event = "USER_DELETED"
	// PasswordRecovery follows opening a password recovery link.
	PasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Notification is delivered to subscribers. Session is nil after sign-out.
// Every subscriber receives its own deep copy of the session, so changes one
// subscriber makes to it are invisible to the others and to the store.
type Notification struct {
	Event   Event
	Session *authapi.Session
}

// Publisher is the sending half, as used by the session manager.
type Publisher interface {
	Publish(event Event, session *authapi.Session)
}

// Notifier fans notifications out to subscribers.
type Notifier struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[idx.ID]*Subscription
	closed bool
}

// NewNotifier creates a Notifier. A nil logger uses slog.Default().
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger: logger,
		subs:   make(map[idx.ID]*Subscription),
	}
}

// Subscribe registers fn. fn runs on the subscription's own goroutine, one
// notification at a time.
func (n *Notifier) Subscribe(fn func(Notification)) *Subscription {
	return n.subscribe(fn, nil)
}

func (n *Notifier) subscribe(fn func(Notification), onStop func()) *Subscription {
	sub := newSubscription(n, fn, onStop)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		sub.stop()
		close(sub.finished)
		return sub
	}
	n.subs[sub.ID] = sub
	n.mu.Unlock()

	go sub.run()
	return sub
}

// Channel streams notifications until ctx is done or the notifier closes,
// then closes the returned channel.
func (n *Notifier) Channel(ctx context.Context) <-chan Notification {
	out := make(chan Notification)
	done := make(chan struct{})

	sub := n.subscribe(func(note Notification) {
		select {
		case out <- note:
		case <-ctx.Done():
		case <-done:
		}
	}, func() { close(done) })

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.stopped:
		}
		<-sub.finished
		close(out)
	}()

	return out
}

// Publish queues a notification for every current subscriber. session is
// copied, never retained.
func (n *Notifier) Publish(event Event, session *authapi.Session) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	n.logger.Debug("auth event", "event", string(event), "subscribers", len(n.subs))
	for _, sub := range n.subs {
		sub.enqueue(Notification{Event: event, Session: session.Clone()})
	}
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close stops every subscription. Queued notifications are dropped and later
// publishes are ignored.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	subs := n.subs
	n.subs = make(map[idx.ID]*Subscription)
	n.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

func (n *Notifier) remove(id idx.ID) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}
