package gotrue_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/credstore"
	"github.com/aussiebroadwan/gotrue-go/pkg/events"
	"github.com/aussiebroadwan/gotrue-go/pkg/gotrue"
	"github.com/aussiebroadwan/gotrue-go/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testUserID = "6b6a4f0e-2c1a-4f55-9d4c-3d3f1f0b7a11"

// userJSON renders a user; extra is spliced in verbatim, e.g. a confirmation
// timestamp.
func userJSON(extra string) string {
	if extra != "" {
		extra += ","
	}
	return `{"id":"` + testUserID + `","aud":"authenticated","email":"ada@example.com","phone":"61400000000",` +
		`"app_metadata":{"provider":"email"},"user_metadata":{"plan":"pro"},` + extra +
		`"created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}`
}

const (
	emailConfirmed = `"email_confirmed_at":"2024-01-02T03:04:05Z"`
	phoneConfirmed = `"phone_confirmed_at":"2024-01-02T03:04:05Z"`
)

func sessionJSON(access, refresh, userExtra string) string {
	return `{"access_token":"` + access + `","token_type":"bearer","expires_in":3600,"refresh_token":"` + refresh + `",` +
		`"user":` + userJSON(userExtra) + `}`
}

// request is one call the fake service received.
type request struct {
	Method string
	Path   string
	Query  url.Values
	Auth   string
	Body   map[string]any
}

// fakeService is a scripted auth service. Routes are keyed by method and
// path, with the grant type appended for /token.
type fakeService struct {
	mu       sync.Mutex
	routes   map[string]reply
	requests []request
}

type reply struct {
	status int
	body   string
	delay  time.Duration
}

func routeKey(method, path string, query url.Values) string {
	key := method + " " + path
	if grant := query.Get("grant_type"); grant != "" {
		key += "?grant_type=" + grant
	}
	return key
}

func (f *fakeService) handle(route string, status int, body string) {
	f.mu.Lock()
	f.routes[route] = reply{status: status, body: body}
	f.mu.Unlock()
}

// handleSlow is handle with a response delay. The delay ends early when the
// client gives up on the request.
func (f *fakeService) handleSlow(route string, status int, body string, delay time.Duration) {
	f.mu.Lock()
	f.routes[route] = reply{status: status, body: body, delay: delay}
	f.mu.Unlock()
}

func (f *fakeService) calls() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func (f *fakeService) last(route string) (request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		r := f.requests[i]
		if routeKey(r.Method, r.Path, r.Query) == route {
			return r, true
		}
	}
	return request{}, false
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Auth:   r.Header.Get("Authorization"),
	}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	rep, ok := f.routes[routeKey(r.Method, r.URL.Path, rec.Query)]
	f.mu.Unlock()

	if !ok {
		rep = reply{status: http.StatusNotFound, body: `{"msg":"no route"}`}
	}
	if rep.delay > 0 {
		select {
		case <-time.After(rep.delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

type harness struct {
	client *gotrue.Client
	svc    *fakeService
	store  *credstore.MemoryStore
	events *collector
}

func newHarness(t *testing.T, mutate func(*gotrue.Config)) *harness {
	t.Helper()

	svc := &fakeService{routes: make(map[string]reply)}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	store := credstore.NewMemoryStore()
	cfg := gotrue.Config{
		API:    authapi.NewClient(srv.URL, "anon-key"),
		Store:  store,
		Logger: slogx.Discard(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := gotrue.New(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	c := &collector{}
	client.OnAuthStateChange(c.add)

	return &harness{client: client, svc: svc, store: store, events: c}
}

// signIn stores a confirmed session through the password flow and waits
// for its SignedIn notification.
func (h *harness) signIn(t *testing.T, access, refresh string) {
	t.Helper()

	h.svc.handle("POST /token?grant_type=password", http.StatusOK, sessionJSON(access, refresh, emailConfirmed))
	_, err := h.client.SignInWithPassword(context.Background(), gotrue.PasswordCredentials{
		Email:    "ada@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	h.events.waitFor(t, events.SignedIn)
	h.events.reset()
}

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

func (c *collector) reset() {
	c.mu.Lock()
	c.notes = nil
	c.mu.Unlock()
}

func (c *collector) all() []events.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Notification(nil), c.notes...)
}

func (c *collector) kinds() []events.Event {
	notes := c.all()
	out := make([]events.Event, len(notes))
	for i, n := range notes {
		out[i] = n.Event
	}
	return out
}

// waitFor blocks until want has been delivered and returns it.
func (c *collector) waitFor(t *testing.T, want events.Event) events.Notification {
	t.Helper()

	var found events.Notification
	require.Eventually(t, func() bool {
		for _, n := range c.all() {
			if n.Event == want {
				found = n
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "no %s notification", want)
	return found
}

// quiet asserts nothing arrives for a short while.
func (c *collector) quiet(t *testing.T) {
	t.Helper()
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, c.kinds())
}
