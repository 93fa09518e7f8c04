package gotrue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/credstore"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"github.com/aussiebroadwan/gotrue-go/pkg/session"
)

// FlowType selects how OAuth sign-ins hand the session back.
type FlowType string

const (
	// FlowImplicit returns tokens in the callback URL fragment.
	FlowImplicit FlowType = "implicit"

	// FlowPKCE returns a one-time code exchanged with a stored verifier.
	FlowPKCE FlowType = "pkce"
)

// Config holds a Client's dependencies. Only API is required.
type Config struct {
	// API performs the network calls
	API *authapi.Client

	// Store persists the session; defaults to an in-memory store
	Store credstore.Store

	// Notifier receives auth state changes; created when nil
	Notifier *events.Notifier

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// RefreshSkew defaults to session.DefaultRefreshSkew
	RefreshSkew time.Duration

	// StorageKey defaults to session.DefaultStorageKey
	StorageKey string

	// FlowType defaults to FlowImplicit
	FlowType FlowType

	// Clock defaults to time.Now
	Clock func() time.Time
}

// Client is the auth client an application talks to. It keeps no session
// state of its own; every read goes through the session manager.
type Client struct {
	api      *authapi.Client
	store    credstore.Store
	manager  *session.Manager
	notifier *events.Notifier
	logger   *slog.Logger
	flow     FlowType
	now      func() time.Time

	ownsNotifier bool
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.API == nil {
		return nil, errors.New("gotrue: config: API client is required")
	}

	switch cfg.FlowType {
	case "":
		cfg.FlowType = FlowImplicit
	case FlowImplicit, FlowPKCE:
	default:
		return nil, fmt.Errorf("gotrue: config: unknown flow type %q", cfg.FlowType)
	}

	if cfg.Store == nil {
		cfg.Store = credstore.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	c := &Client{
		api:      cfg.API,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		flow:     cfg.FlowType,
		now:      cfg.Clock,
	}
	if c.notifier == nil {
		c.notifier = events.NewNotifier(cfg.Logger)
		c.ownsNotifier = true
	}

	opts := []session.Option{
		session.WithPublisher(c.notifier),
		session.WithLogger(cfg.Logger.With("component", "session")),
		session.WithClock(cfg.Clock),
		session.WithStorageKey(cfg.StorageKey),
	}
	if cfg.RefreshSkew > 0 {
		opts = append(opts, session.WithRefreshSkew(cfg.RefreshSkew))
	}
	c.manager = session.NewManager(cfg.Store, cfg.API, opts...)

	return c, nil
}

// API returns the underlying endpoint client.
func (c *Client) API() *authapi.Client { return c.api }

// Manager returns the session manager backing c.
func (c *Client) Manager() *session.Manager { return c.manager }

// Notifier returns the notifier auth state changes are published on.
func (c *Client) Notifier() *events.Notifier { return c.notifier }

// Close stops event delivery if c created its own notifier.
func (c *Client) Close() {
	if c.ownsNotifier {
		c.notifier.Close()
	}
}

// Initialize announces SignedIn when a usable session survives from an
// earlier run. A missing session is not an error; a failed refresh is
// returned and leaves the stale session stored.
func (c *Client) Initialize(ctx context.Context) error {
	s, err := c.manager.Session(ctx)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		c.logger.Warn("stored session could not be restored", "error", err)
		return err
	}

	c.publish(events.SignedIn, s)
	return nil
}

// OnAuthStateChange registers fn for every auth state change. Call
// Unsubscribe on the result to stop.
func (c *Client) OnAuthStateChange(fn func(events.Notification)) *events.Subscription {
	return c.notifier.Subscribe(fn)
}

// AuthStateChanges streams auth state changes until ctx is done.
func (c *Client) AuthStateChanges(ctx context.Context) <-chan events.Notification {
	return c.notifier.Channel(ctx)
}

// adopt makes s the current session and announces it.
func (c *Client) adopt(ctx context.Context, s *authapi.Session, event events.Event) error {
	if err := c.manager.Update(ctx, s); err != nil {
		return err
	}
	c.publish(event, s)
	return nil
}

func (c *Client) publish(event events.Event, s *authapi.Session) {
	c.notifier.Publish(event, s)
}

func security(captchaToken string) *authapi.MetaSecurity {
	if captchaToken == "" {
		return nil
	}
	return &authapi.MetaSecurity{HCaptchaToken: captchaToken}
}
