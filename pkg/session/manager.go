// Package session owns the current credential: it decides when the stored
// session is stale, runs at most one refresh at a time for any number of
// concurrent callers, persists every change to a credstore.Store and
// announces refreshes through an events.Publisher.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/credstore"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
)

const (
	// DefaultStorageKey is the credential store key of the stored session.
	DefaultStorageKey = "supabase.session"

	// DefaultRefreshSkew is how long before real expiry a session stops
	// counting as valid.
	DefaultRefreshSkew = 60 * time.Second

	// DefaultRefreshTimeout bounds one refresh round trip.
	DefaultRefreshTimeout = 30 * time.Second
)

// ErrSessionNotFound means no session is stored.
var ErrSessionNotFound = errors.New("session: not found")

// Refresher exchanges a refresh token for a new session.
// *authapi.Client satisfies it.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*authapi.Session, error)
}

// Manager is safe for concurrent use and meant to live as long as the process.
type Manager struct {
	store     credstore.Store
	refresher Refresher
	publisher events.Publisher
	logger    *slog.Logger

	now            func() time.Time
	skew           time.Duration
	key            string
	refreshTimeout time.Duration

	// mu guards inflight and gen, and serializes storage writes so that gen
	// always describes the latest write.
	mu       sync.Mutex
	inflight *refreshCall
	gen      uint64
}

// refreshCall is one in-flight refresh shared by every caller that joins it.
type refreshCall struct {
	done chan struct{}

	session *authapi.Session
	err     error

	// superseded is set when an explicit Update or Remove landed while the
	// refresh was running; its result was discarded.
	superseded bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher announces refreshes on p. Publish is called with the
// manager's lock held and must not call back into the Manager.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRefreshSkew sets the validity margin (default 60s).
func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.skew = d
		}
	}
}

// WithStorageKey sets the credential store key (default "supabase.session").
func WithStorageKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithRefreshTimeout bounds each refresh call; zero means no bound.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) { m.refreshTimeout = d }
}

// NewManager creates a Manager persisting through store and refreshing
// through refresher.
func NewManager(store credstore.Store, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		refresher:      refresher,
		logger:         slog.Default(),
		now:            time.Now,
		skew:           DefaultRefreshSkew,
		key:            DefaultStorageKey,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StorageKey returns the key the session is stored under.
func (m *Manager) StorageKey() string { return m.key }

// Session returns a session that is valid right now, refreshing the stored
// one first if it is within the skew of expiry. Concurrent callers share a
// single refresh. Returns ErrSessionNotFound when nothing is stored; refresh
// errors are returned unchanged and leave the stale session stored.
func (m *Manager) Session(ctx context.Context) (*authapi.Session, error) {
	return m.get(ctx, false)
}

// Refresh refreshes the stored session regardless of its validity. It joins
// a refresh that is already running instead of starting another.
func (m *Manager) Refresh(ctx context.Context) (*authapi.Session, error) {
	return m.get(ctx, true)
}

func (m *Manager) get(ctx context.Context, force bool) (*authapi.Session, error) {
	for {
		m.mu.Lock()
		if call := m.inflight; call != nil {
			m.mu.Unlock()

			session, retry, err := m.wait(ctx, call)
			if retry {
				continue
			}
			return session, err
		}
		gen := m.gen
		m.mu.Unlock()

		stored, err := m.load(ctx)
		if err != nil {
			return nil, err
		}

		if !force && stored.IsValid(m.now(), m.skew) {
			session := stored.Session
			return &session, nil
		}

		m.mu.Lock()
		if m.inflight != nil || m.gen != gen {
			// Someone else started a refresh or wrote a new session since we
			// read storage; start over against the current state.
			m.mu.Unlock()
			continue
		}
		call := m.startRefreshLocked(ctx, stored.Session.RefreshToken, gen)
		m.mu.Unlock()

		session, retry, err := m.wait(ctx, call)
		if retry {
			continue
		}
		return session, err
	}
}

// wait blocks until call finishes or ctx is done. Leaving early does not
// cancel the refresh. retry is true when the refresh was superseded and the
// caller should read storage again.
func (m *Manager) wait(ctx context.Context, call *refreshCall) (*authapi.Session, bool, error) {
	select {
	case <-call.done:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}

	if call.superseded {
		return nil, true, nil
	}
	if call.err != nil {
		return nil, false, call.err
	}

	session := *call.session
	return &session, false, nil
}

// startRefreshLocked registers and launches a refresh. m.mu must be held.
func (m *Manager) startRefreshLocked(ctx context.Context, refreshToken string, gen uint64) *refreshCall {
	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call

	// Keep request scoped values such as the logger, drop cancellation.
	refreshCtx := context.WithoutCancel(ctx)

	go m.runRefresh(refreshCtx, call, refreshToken, gen)
	return call
}

func (m *Manager) runRefresh(ctx context.Context, call *refreshCall, refreshToken string, gen uint64) {
	defer close(call.done)

	reqCtx := ctx
	if m.refreshTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, m.refreshTimeout)
		defer cancel()
	}

	m.logger.Debug("refreshing session")
	session, err := m.refresher.RefreshAccessToken(reqCtx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = nil

	if err != nil {
		m.logger.Warn("session refresh failed", "error", err)
		call.err = err
		return
	}

	if m.gen != gen {
		m.logger.Info("discarding refreshed session superseded by a newer write")
		call.superseded = true
		return
	}

	if err := m.saveLocked(ctx, *session); err != nil {
		call.err = err
		return
	}

	m.logger.Info("session refreshed", "expires_in", session.ExpiresIn)
	call.session = session

	// Published under mu so subscribers observe events in storage order.
	published := *session
	m.publish(events.TokenRefreshed, &published)
}

// Update stores session as the current one with a fresh expiration date.
// A refresh running concurrently is discarded when it completes.
func (m *Manager) Update(ctx context.Context, session *authapi.Session) error {
	if session == nil {
		return errors.New("session: nil session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saveLocked(ctx, *session)
}

// UpdateUser replaces the user snapshot inside the stored session and keeps
// its tokens and expiration date.
func (m *Manager) UpdateUser(ctx context.Context, user *authapi.User) error {
	if user == nil {
		return errors.New("session: nil user")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.load(ctx)
	if err != nil {
		return err
	}
	stored.Session.User = *user

	// Tokens are unchanged, so a refresh running now stays valid and is not
	// superseded.
	return m.writeLocked(ctx, stored)
}

// Remove deletes the stored session. It never fails: storage errors are
// logged. A refresh running concurrently is discarded when it completes.
// The delete ignores cancellation of ctx, so a caller whose deadline has
// passed still ends up signed out locally.
func (m *Manager) Remove(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	if err := m.store.Delete(context.WithoutCancel(ctx), m.key); err != nil {
		m.logger.Error("failed to remove stored session", "error", err)
	}
}

// Stored returns the stored session without checking its validity, or nil.
// Never use it to authenticate requests.
func (m *Manager) Stored(ctx context.Context) *authapi.Session {
	stored, err := m.load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn("failed to read stored session", "error", err)
		}
		return nil
	}
	return &stored.Session
}

// StoredSession returns the persisted envelope including its expiration date.
func (m *Manager) StoredSession(ctx context.Context) (StoredSession, error) {
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (StoredSession, error) {
	data, err := m.store.Get(ctx, m.key)
	if errors.Is(err, credstore.ErrNotFound) {
		return StoredSession{}, ErrSessionNotFound
	}
	if err != nil {
		return StoredSession{}, fmt.Errorf("session: read stored session: %w", err)
	}

	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return StoredSession{}, fmt.Errorf("session: decode stored session: %w", err)
	}
	return stored, nil
}

// saveLocked stamps and writes session, marking any running refresh as
// superseded. m.mu must be held.
func (m *Manager) saveLocked(ctx context.Context, session authapi.Session) error {
	m.gen++
	return m.writeLocked(ctx, NewStoredSession(session, m.now()))
}

func (m *Manager) writeLocked(ctx context.Context, stored StoredSession) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("session: encode stored session: %w", err)
	}
	if err := m.store.Set(ctx, m.key, data); err != nil {
		return fmt.Errorf("session: write stored session: %w", err)
	}
	return nil
}

func (m *Manager) publish(event events.Event, session *authapi.Session) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(event, session)
}
