package core

import (
	"github.com/encodeous/weft/state"
)

func engineTimeout(s *state.State) error {
	s.Log.Info("run duration elapsed", "ticks", Get[*Engine](s).Ticks)
	s.Cancel(ErrRunComplete)
	return nil
}

func engineGc(s *state.State) error {
	e := Get[*Engine](s)
	// expired entries let a packet that strands again be reported again
	e.stranded.DeleteExpired()
	return nil
}
