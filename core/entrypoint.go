package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/encodeous/tint"
	"github.com/encodeous/weft/perf"
	"github.com/encodeous/weft/state"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
)

var errShutdown = errors.New("received shutdown signal")

// liveEnv is the env of the running Start call, read by the debug server.
var liveEnv atomic.Pointer[state.Env]

// SetupDebugging serves pprof, expvar, prometheus and live snapshots when
// DBG_debug is set.
func SetupDebugging() {
	if state.DBG_debug {
		http.Handle("/metrics", perf.Default().Handler())
		http.HandleFunc("/debug/snapshot", serveSnapshot)
		go func() {
			log.Println(http.ListenAndServe(state.DebugAddr, nil))
		}()
	}
}

// LoadConfig reads and validates the config at cfgPath. An empty path yields
// the defaults.
func LoadConfig(cfgPath string) (*state.SimCfg, error) {
	cfg := state.DefaultSimCfg()
	if cfgPath != "" {
		read, err := state.ReadSimCfg(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = *read
	}
	if err := state.SimConfigValidator(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewLogger builds the console logger, optionally fanned out to cfg.LogPath.
func NewLogger(cfg state.SimCfg, logLevel slog.Level) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: cfg.Name,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

func serveSnapshot(w http.ResponseWriter, r *http.Request) {
	env := liveEnv.Load()
	if env == nil || env.Context.Err() != nil {
		http.Error(w, "simulation is not running", http.StatusServiceUnavailable)
		return
	}
	snap, err := RequestSnapshot(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	out, err := yaml.Marshal(snap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(out)
}

func newState(cfg state.SimCfg, logger *slog.Logger) *state.State {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: make(chan func(env *state.State) error, 128),
			SimCfg:          cfg,
			Log:             logger,
		},
	}
}

func Start(cfg state.SimCfg, logLevel slog.Level, initState **state.State) error {
	logger, err := NewLogger(cfg, logLevel)
	if err != nil {
		return err
	}
	s := newState(cfg, logger)
	if initState != nil {
		*initState = s
	}

	s.Log.Info("init modules")
	err = initModules(s)
	if err != nil {
		Stop(s)
		return err
	}
	s.Log.Info("init modules complete")
	liveEnv.Store(s.Env)
	defer liveEnv.CompareAndSwap(s.Env, nil)

	s.Log.Info("weft has been initialized. To gracefully exit, send SIGINT or Ctrl+C.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(errShutdown)
		case <-s.Context.Done():
			return
		}
	}()

	err = MainLoop(s, s.DispatchChannel)
	if err != nil {
		return err
	}
	cause := context.Cause(s.Context)
	if errors.Is(cause, ErrRunComplete) || errors.Is(cause, errShutdown) || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

func moduleName(m state.Module) string {
	return reflect.TypeOf(m).String()
}

func registerModule(s *state.State, m state.Module) {
	s.Modules[moduleName(m)] = m
}

func initModules(s *state.State) error {
	var modules []state.Module
	modules = append(modules, &Trace{})
	modules = append(modules, &Engine{})

	for _, module := range modules {
		registerModule(s, module)
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatchThreshold {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

// Stop cancels the run and cleans up every module. The dispatch channel is
// left open; late Dispatch calls return once they see the cancelled context.
func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for name, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", name, "error", err)
		}
	}
	s.Log.Info("stopped")
}

// NewOffline sets up an engine that is driven by calling Tick directly, with
// no main loop or timers.
func NewOffline(cfg state.SimCfg, logger *slog.Logger) (*Engine, error) {
	s := newState(cfg, logger)
	e := &Engine{Metrics: perf.NewRegistry()}
	registerModule(s, e)
	if err := e.Setup(s); err != nil {
		s.Cancel(err)
		return nil, err
	}
	return e, nil
}

// Simulate runs ticks fixed-length ticks offline.
func Simulate(cfg state.SimCfg, logger *slog.Logger, ticks uint64) (*Engine, error) {
	e, err := NewOffline(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer e.Cancel(ErrRunComplete)
	for range ticks {
		if err := e.Tick(cfg.TickInterval); err != nil {
			return e, fmt.Errorf("tick %d: %w", e.Ticks, err)
		}
	}
	return e, nil
}
