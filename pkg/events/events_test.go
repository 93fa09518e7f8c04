package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/anyjson"
	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"github.com/aussiebroadwan/gotrue-go/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// collector records notifications for assertions.
type collector struct {
	mu    sync.Mutex
	notes []events.Notification
}

func (c *collector) add(n events.Notification) {
	c.mu.Lock()
	c.notes = append(c.notes, n)
	c.mu.Unlock()
}

func (c *collector) events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]events.Event, len(c.notes))
	for i, n := range c.notes {
		out[i] = n.Event
	}
	return out
}

func TestNotifier_DeliversInOrder(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	var c collector
	n.Subscribe(c.add)

	session := &authapi.Session{AccessToken: "A"}
	n.Publish(events.SignedIn, session)
	n.Publish(events.TokenRefreshed, session)
	n.Publish(events.SignedOut, nil)

	want := []events.Event{events.SignedIn, events.TokenRefreshed, events.SignedOut}
	require.Eventually(t, func() bool { return len(c.events()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, want, c.events())
}

func TestNotifier_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	release := make(chan struct{})
	n.Subscribe(func(events.Notification) { <-release })

	var fast collector
	n.Subscribe(fast.add)

	// Publish must return even though the slow subscriber is stuck
	published := make(chan struct{})
	go func() {
		for range 100 {
			n.Publish(events.TokenRefreshed, nil)
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	require.Eventually(t, func() bool { return len(fast.events()) == 100 }, time.Second, 5*time.Millisecond)
	close(release)
}

func TestNotifier_SubscribersGetTheirOwnSession(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	mutated := make(chan struct{})
	n.Subscribe(func(note events.Notification) {
		note.Session.AccessToken = "stolen"
		note.Session.User.UserMetadata["plan"] = anyjson.StringValue("free")
		close(mutated)
	})

	seen := make(chan *authapi.Session, 1)
	n.Subscribe(func(note events.Notification) {
		<-mutated
		seen <- note.Session
	})

	published := &authapi.Session{
		AccessToken: "A",
		User:        authapi.User{UserMetadata: map[string]anyjson.Value{"plan": anyjson.StringValue("pro")}},
	}
	n.Publish(events.SignedIn, published)

	var got *authapi.Session
	select {
	case got = <-seen:
	case <-time.After(time.Second):
		t.Fatal("second subscriber not called")
	}

	require.Equal(t, "A", got.AccessToken)
	plan, _ := got.User.UserMetadata["plan"].Text()
	require.Equal(t, "pro", plan)

	require.Equal(t, "A", published.AccessToken)
	plan, _ = published.User.UserMetadata["plan"].Text()
	require.Equal(t, "pro", plan)
}

func TestNotifier_PanickingSubscriberIsIsolated(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	n.Subscribe(func(events.Notification) { panic("boom") })

	var c collector
	n.Subscribe(c.add)

	n.Publish(events.SignedIn, nil)
	n.Publish(events.SignedOut, nil)

	require.Eventually(t, func() bool { return len(c.events()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSubscription_Unsubscribe(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	var c collector
	sub := n.Subscribe(c.add)
	require.False(t, sub.ID.IsZero())
	require.Equal(t, 1, n.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.Equal(t, 0, n.Subscribers())

	n.Publish(events.SignedIn, nil)
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, c.events())
}

func TestSubscription_UnsubscribeFromCallback(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	var (
		mu    sync.Mutex
		count int
		sub   *events.Subscription
	)
	ready := make(chan struct{})
	sub = n.Subscribe(func(events.Notification) {
		<-ready
		mu.Lock()
		count++
		mu.Unlock()
		sub.Unsubscribe()
	})
	close(ready)

	n.Publish(events.SignedIn, nil)
	require.Eventually(t, func() bool { return n.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	n.Publish(events.SignedOut, nil)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, count)
}

func TestNotifier_Channel(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	t.Cleanup(n.Close)

	ctx, cancel := context.WithCancel(context.Background())
	ch := n.Channel(ctx)

	n.Publish(events.SignedIn, &authapi.Session{AccessToken: "A"})

	select {
	case note := <-ch:
		require.Equal(t, events.SignedIn, note.Event)
		require.Equal(t, "A", note.Session.AccessToken)
	case <-time.After(time.Second):
		t.Fatal("no notification on channel")
	}

	// Channel closes once the context is cancelled
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, n.Subscribers())
}

func TestNotifier_Close(t *testing.T) {
	t.Parallel()

	n := events.NewNotifier(slogx.Discard())
	ch := n.Channel(context.Background())

	n.Close()
	n.Close()

	_, ok := <-ch
	require.False(t, ok)

	// Subscribing after close yields an inert subscription
	sub := n.Subscribe(func(events.Notification) {})
	sub.Unsubscribe()
	n.Publish(events.SignedIn, nil)
	require.Equal(t, 0, n.Subscribers())
}
