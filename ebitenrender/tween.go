package ebitenrender

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// rectTween animates the four fields of a rect (left, top, width, height)
// towards a target. Fields that do not change get no tween.
type rectTween struct {
	tweens [4]*gween.Tween
	done   bool
}

func newRectTween(from, to [4]float32, duration float32, fn ease.TweenFunc) *rectTween {
	t := &rectTween{}
	for i := range from {
		if from[i] != to[i] {
			t.tweens[i] = gween.New(from[i], to[i], duration, fn)
		}
	}
	return t
}

// update advances every tween by dt seconds and writes the values into dst.
// It reports whether the tween has finished.
func (t *rectTween) update(dt float32, dst *[4]float32) bool {
	if t.done {
		return true
	}
	done := true
	for i, tw := range t.tweens {
		if tw == nil {
			continue
		}
		val, finished := tw.Update(dt)
		dst[i] = val
		if !finished {
			done = false
		}
	}
	t.done = done
	return done
}
