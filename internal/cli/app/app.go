package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"github.com/aussiebroadwan/gotrue-go/pkg/gotrue"
	"github.com/aussiebroadwan/gotrue-go/pkg/httpx"
	"github.com/aussiebroadwan/gotrue-go/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the auth client and its dependencies for the CLI.
type Application struct {
	cfg    Config
	logger *slog.Logger

	client   *gotrue.Client
	notifier *events.Notifier

	closeStore func() error
}

// New creates an Application with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gotrue-cli",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	store, closeStore, err := openStore(ctx, cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.closeStore = closeStore

	app.notifier = events.NewNotifier(app.logger.With("component", "events"))

	client, err := gotrue.New(gotrue.Config{
		API:         app.initAPI(),
		Store:       store,
		Notifier:    app.notifier,
		Logger:      app.logger,
		RefreshSkew: cfg.RefreshSkew,
		StorageKey:  cfg.StorageKey,
		FlowType:    gotrue.FlowType(cfg.Flow),
	})
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to initialize auth client: %w", err)
	}
	app.client = client

	return app, nil
}

// initAPI builds the endpoint client: requests are rate limited per host
// and every round trip is logged.
func (app *Application) initAPI() *authapi.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if app.cfg.RateLimit.Enabled() {
		transport = httpx.NewLimitedTransport(transport, app.cfg.RateLimit)
	}
	transport = slogx.NewTransport(transport, app.logger)

	return authapi.NewClient(app.cfg.URL, app.cfg.APIKey).WithHTTPClient(&http.Client{
		Timeout:   app.cfg.HTTPTimeout,
		Transport: transport,
	})
}

// Client returns the auth client.
func (app *Application) Client() *gotrue.Client { return app.client }

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Close stops event delivery and releases the store.
func (app *Application) Close() error {
	app.notifier.Close()

	if err := app.closeStore(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
		return err
	}
	return nil
}
