package core

import (
	"fmt"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/weft/state"
)

// Trace fans tick snapshots out to any number of listeners. Slow listeners
// miss snapshots rather than stall the main loop.
type Trace struct {
	broadcast.Broadcaster
}

func (t *Trace) Init(s *state.State) error {
	t.Broadcaster = broadcast.NewBroadcaster(1024)
	return nil
}

func (t *Trace) Cleanup(s *state.State) error {
	return t.Broadcaster.Close()
}

func (t *Trace) Publish(snap state.Snapshot) bool {
	return t.TrySubmit(snap)
}

// RequestSnapshot asks the main loop for a snapshot of the current tick. It is
// safe to call from any goroutine.
func RequestSnapshot(env *state.Env) (state.Snapshot, error) {
	res, err := env.DispatchWait(func(s *state.State) (any, error) {
		return Get[*Engine](s).Snapshot(), nil
	})
	if err != nil {
		return state.Snapshot{}, err
	}
	snap, ok := res.(state.Snapshot)
	if !ok {
		return state.Snapshot{}, fmt.Errorf("unexpected snapshot result %T", res)
	}
	return snap, nil
}

// Subscribe registers a listener. The returned function unregisters it.
func (t *Trace) Subscribe(buf int) (<-chan any, func()) {
	ch := make(chan any, buf)
	t.Register(ch)
	return ch, func() {
		t.Unregister(ch)
	}
}
