package zoml

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/phanxgames/zoml/ecs"
)

// SystemFunc is the body of a system. Structural changes go through buf and
// become visible at the next stage barrier.
type SystemFunc func(buf *ecs.CommandBuffer) error

// System is a named unit of per-tick work.
type System struct {
	Name string
	Run  SystemFunc
}

// Stage is an ordered group of systems. Every system in a stage observes the
// world as it was when the stage started.
type Stage struct {
	Name    string
	Systems []System
}

// SystemMetrics accumulates execution timings of one system. Only collected
// in debug mode.
type SystemMetrics struct {
	Stage          string
	System         string
	ExecutionCount uint64
	TotalTime      time.Duration
	LastTime       time.Duration
	MaxTime        time.Duration
	Commands       int
}

// AverageTime returns the mean execution time.
func (m SystemMetrics) AverageTime() time.Duration {
	if m.ExecutionCount == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.ExecutionCount)
}

type scheduledSystem struct {
	System
	buf     *ecs.CommandBuffer
	metrics SystemMetrics
}

type scheduledStage struct {
	name    string
	systems []*scheduledSystem
}

// Scheduler runs stages in declaration order. Each system owns a command
// buffer; at the end of a stage the buffers are flushed in system order.
type Scheduler struct {
	world  *ecs.World
	log    *zap.Logger
	stages []scheduledStage
	debug  bool
	ticks  uint64
}

// NewScheduler creates a scheduler over w. System names must be unique.
func NewScheduler(w *ecs.World, log *zap.Logger, stages ...Stage) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{world: w, log: log}
	seen := make(map[string]bool)
	for _, st := range stages {
		ss := scheduledStage{name: st.Name}
		for _, sys := range st.Systems {
			if sys.Run == nil {
				panic(fmt.Sprintf("zoml: system %q has no body", sys.Name))
			}
			if seen[sys.Name] {
				panic(fmt.Sprintf("zoml: duplicate system %q", sys.Name))
			}
			seen[sys.Name] = true
			ss.systems = append(ss.systems, &scheduledSystem{
				System:  sys,
				buf:     ecs.NewCommandBuffer(w, sys.Name),
				metrics: SystemMetrics{Stage: st.Name, System: sys.Name},
			})
		}
		s.stages = append(s.stages, ss)
	}
	return s
}

// SetDebugMode enables per-system timing metrics and their logging.
func (s *Scheduler) SetDebugMode(enabled bool) { s.debug = enabled }

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// Stages returns the stage names in execution order.
func (s *Scheduler) Stages() []string {
	names := make([]string, len(s.stages))
	for i, st := range s.stages {
		names[i] = st.name
	}
	return names
}

// Metrics returns a snapshot of every system's metrics in execution order.
func (s *Scheduler) Metrics() []SystemMetrics {
	var out []SystemMetrics
	for _, st := range s.stages {
		for _, sys := range st.systems {
			out = append(out, sys.metrics)
		}
	}
	return out
}

// Tick runs every stage once. A system error aborts the tick: commands of the
// failing stage are discarded and the error is returned.
func (s *Scheduler) Tick() error {
	var stats debugStats
	for _, st := range s.stages {
		start := time.Now()
		for _, sys := range st.systems {
			if err := s.run(sys); err != nil {
				for _, other := range st.systems {
					other.buf.Reset()
				}
				return fmt.Errorf("zoml: stage %s: system %s: %w", st.name, sys.Name, err)
			}
		}
		for _, sys := range st.systems {
			applied := sys.buf.Flush()
			if s.debug {
				sys.metrics.Commands += applied
			}
		}
		if s.debug {
			stats.stages = append(stats.stages, stageTiming{name: st.name, elapsed: time.Since(start)})
		}
	}
	s.ticks++
	s.debugLog(stats)
	return nil
}

func (s *Scheduler) run(sys *scheduledSystem) error {
	if !s.debug {
		return sys.Run(sys.buf)
	}
	start := time.Now()
	err := sys.Run(sys.buf)
	elapsed := time.Since(start)
	m := &sys.metrics
	m.ExecutionCount++
	m.TotalTime += elapsed
	m.LastTime = elapsed
	m.MaxTime = max(m.MaxTime, elapsed)
	return err
}
