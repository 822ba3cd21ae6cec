package core

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/encodeous/weft/state"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStartStopsAfterMaxTicks(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreTopFunction("os/signal.loop"),
	)

	cfg := state.DefaultSimCfg()
	cfg.Seed = 3
	cfg.TickInterval = time.Millisecond
	cfg.MaxTicks = 20

	var s *state.State
	done := make(chan error, 1)
	go func() {
		done <- Start(cfg, slog.LevelError, &s)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after MaxTicks")
	}

	require.NotNil(t, s)
	assert.True(t, s.Stopping.Load())
	e := Get[*Engine](s)
	assert.GreaterOrEqual(t, e.Ticks, cfg.MaxTicks)
	assert.NoError(t, s.Topology.Validate())
}

func TestStartStopsAfterDuration(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreTopFunction("os/signal.loop"),
	)

	cfg := state.DefaultSimCfg()
	cfg.Seed = 3
	cfg.TickInterval = time.Millisecond
	cfg.Duration = 50 * time.Millisecond

	var s *state.State
	done := make(chan error, 1)
	go func() {
		done <- Start(cfg, slog.LevelError, &s)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after Duration")
	}
	assert.ErrorIs(t, context.Cause(s.Context), ErrRunComplete)
	assert.Positive(t, Get[*Engine](s).Ticks)
}

// runLoop serves dispatches for an offline engine until the test ends.
func runLoop(t *testing.T, e *Engine) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = MainLoop(e.State, e.DispatchChannel)
	}()
	t.Cleanup(func() {
		e.Cancel(ErrRunComplete)
		<-done
	})
}

func TestRequestSnapshot(t *testing.T) {
	cfg := state.DefaultSimCfg()
	cfg.Seed = 8
	e, err := NewOffline(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	for range 30 {
		require.NoError(t, e.Tick(cfg.TickInterval))
	}
	runLoop(t, e)

	snap, err := RequestSnapshot(e.Env)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), snap.Tick)
	assert.Len(t, snap.Nodes, len(e.Topology.Nodes))

	e.Cancel(ErrRunComplete)
	_, err = RequestSnapshot(e.Env)
	assert.Error(t, err)
}

func TestServeSnapshot(t *testing.T) {
	cfg := state.DefaultSimCfg()
	cfg.Seed = 9
	e, err := NewOffline(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	for range 12 {
		require.NoError(t, e.Tick(cfg.TickInterval))
	}
	runLoop(t, e)
	liveEnv.Store(e.Env)
	t.Cleanup(func() {
		liveEnv.Store(nil)
	})

	rec := httptest.NewRecorder()
	serveSnapshot(rec, httptest.NewRequest(http.MethodGet, "/debug/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap state.Snapshot
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(12), snap.Tick)
	assert.Len(t, snap.Nodes, len(e.Topology.Nodes))

	e.Cancel(ErrRunComplete)
	rec = httptest.NewRecorder()
	serveSnapshot(rec, httptest.NewRequest(http.MethodGet, "/debug/snapshot", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMainLoopStopsOnDispatchError(t *testing.T) {
	s := newState(state.DefaultSimCfg(), slog.New(slog.DiscardHandler))
	registerModule(s, &Trace{})
	require.NoError(t, Get[*Trace](s).Init(s))

	ran := false
	s.Dispatch(func(s *state.State) error {
		ran = true
		return state.ErrDimensionMismatch
	})
	require.NoError(t, MainLoop(s, s.DispatchChannel))

	assert.True(t, ran)
	assert.True(t, s.Stopping.Load())
	assert.ErrorIs(t, context.Cause(s.Context), state.ErrInvariantViolation)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, state.DefaultSimCfg(), *cfg)

	_, err = LoadConfig(t.TempDir() + "/missing.yaml")
	assert.Error(t, err)
}
