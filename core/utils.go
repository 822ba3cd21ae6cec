package core

import (
	"math"
	"reflect"

	"github.com/encodeous/weft/state"
)

func Get[T state.Module](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}

// easeCubicInOut is the symmetric cubic easing curve used for packet motion.
func easeCubicInOut(t float64) float64 {
	if t <= 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
