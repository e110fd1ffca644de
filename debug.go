package zoml

import (
	"time"

	"go.uber.org/zap"

	"github.com/phanxgames/zoml/ecs"
)

type stageTiming struct {
	name    string
	elapsed time.Duration
}

// debugStats holds per-tick stage timings. Only populated in debug mode.
type debugStats struct {
	stages []stageTiming
}

func (s debugStats) total() time.Duration {
	var t time.Duration
	for _, st := range s.stages {
		t += st.elapsed
	}
	return t
}

// debugLog writes the stage timings of one tick.
func (s *Scheduler) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	fields := make([]zap.Field, 0, len(stats.stages)+2)
	fields = append(fields, zap.Uint64("tick", s.ticks))
	for _, st := range stats.stages {
		fields = append(fields, zap.Duration(st.name, st.elapsed))
	}
	fields = append(fields, zap.Duration("total", stats.total()))
	s.log.Debug("tick", fields...)
}

// debugMaxTreeDepth is the depth past which the builder warns in debug mode.
const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns when e sits deeper than debugMaxTreeDepth.
func debugCheckTreeDepth(log *zap.Logger, rels *RelationshipMap, e ecs.Entity) {
	if d := rels.Depth(e); d > debugMaxTreeDepth {
		log.Warn("tree depth exceeds threshold",
			zap.Int("depth", d), zap.Int("threshold", debugMaxTreeDepth))
	}
}
