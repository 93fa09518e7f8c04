package events

import (
	"fmt"
	"sync"

	"github.com/aussiebroadwan/gotrue-go/pkg/idx"
)

// Subscription is one registered listener.
type Subscription struct {
	ID idx.ID

	notifier *Notifier
	fn       func(Notification)
	onStop   func()

	mu       sync.Mutex
	queue    []Notification
	wake     chan struct{}
	stopped  chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

func newSubscription(n *Notifier, fn func(Notification), onStop func()) *Subscription {
	return &Subscription{
		ID:       idx.New(),
		notifier: n,
		fn:       fn,
		onStop:   onStop,
		wake:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Unsubscribe stops delivery. Safe to call more than once and from inside
// the callback.
func (s *Subscription) Unsubscribe() {
	s.notifier.remove(s.ID)
	s.stop()
}

func (s *Subscription) stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.onStop != nil {
			s.onStop()
		}
		s.mu.Lock()
		s.queue = nil
		s.mu.Unlock()
	})
}

func (s *Subscription) enqueue(note Notification) {
	s.mu.Lock()
	s.queue = append(s.queue, note)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer close(s.finished)

	for {
		select {
		case <-s.stopped:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			note := s.queue[0]
			s.queue[0] = Notification{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.stopped:
				return
			default:
			}

			s.deliver(note)
		}
	}
}

// deliver runs the callback, containing panics to this subscriber.
func (s *Subscription) deliver(note Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.notifier.logger.Error("auth event subscriber panicked",
				"subscription", s.ID.String(),
				"event", string(note.Event),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.fn(note)
}
