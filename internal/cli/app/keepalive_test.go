package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/authapi"
	"github.com/aussiebroadwan/gotrue-go/pkg/gotrue"
	"github.com/aussiebroadwan/gotrue-go/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) GetSession(context.Context) (*authapi.Session, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &authapi.Session{AccessToken: "A"}, nil
}

func TestKeepAlive_ChecksImmediatelyAndOnTick(t *testing.T) {
	t.Parallel()

	src := &countingSource{}
	k := NewKeepAlive(src, slogx.Discard(), 10*time.Millisecond)
	k.Start()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	k.Stop()

	stopped := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, src.calls.Load())
}

func TestKeepAlive_SurvivesErrors(t *testing.T) {
	t.Parallel()

	for _, err := range []error{gotrue.ErrSessionNotFound, errors.New("refresh failed")} {
		src := &countingSource{err: err}
		k := NewKeepAlive(src, slogx.Discard(), 10*time.Millisecond)
		k.Start()
		require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		k.Stop()
	}
}

func TestNewKeepAlive_DefaultInterval(t *testing.T) {
	t.Parallel()

	k := NewKeepAlive(&countingSource{}, slogx.Discard(), 0)
	require.Equal(t, 30*time.Second, k.Interval)
}
