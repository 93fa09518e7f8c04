package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg := httpx.ParseRateLimitFromEnv("TESTRL_UNSET", httpx.DefaultLimit)
		require.Equal(t, httpx.DefaultLimit, cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("TESTRL_RATELIMIT_REQUESTS", "7")
		t.Setenv("TESTRL_RATELIMIT_WINDOW_SEC", "2")
		t.Setenv("TESTRL_RATELIMIT_BURST", "3")

		cfg := httpx.ParseRateLimitFromEnv("TESTRL", httpx.DefaultLimit)
		require.Equal(t, 7, cfg.RequestsPerWindow)
		require.Equal(t, 2*time.Second, cfg.Window)
		require.Equal(t, 3, cfg.Burst)
	})

	t.Run("ignores garbage", func(t *testing.T) {
		t.Setenv("TESTRL_RATELIMIT_REQUESTS", "lots")
		t.Setenv("TESTRL_RATELIMIT_WINDOW_SEC", "-5")

		cfg := httpx.ParseRateLimitFromEnv("TESTRL", httpx.DefaultLimit)
		require.Equal(t, httpx.DefaultLimit, cfg)
	})

	t.Run("zero disables", func(t *testing.T) {
		t.Setenv("TESTRL_RATELIMIT_REQUESTS", "0")

		cfg := httpx.ParseRateLimitFromEnv("TESTRL", httpx.DefaultLimit)
		require.False(t, cfg.Enabled())
	})
}

func newCountingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLimitedTransport_BurstThenBlocks(t *testing.T) {
	srv, hits := newCountingServer(t)

	client := &http.Client{Transport: httpx.NewLimitedTransport(nil, httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Hour,
		Burst:             2,
	})}

	for range 2 {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.EqualValues(t, 2, hits.Load())

	// Third request has to wait an hour, the context gives up first
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestLimitedTransport_Disabled(t *testing.T) {
	srv, hits := newCountingServer(t)

	client := &http.Client{Transport: httpx.NewLimitedTransport(nil, httpx.RateLimitConfig{})}
	for range 20 {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.EqualValues(t, 20, hits.Load())
}
