package zoml

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yohamta/donburi"

	"github.com/phanxgames/zoml/ecs"
)

var testMarker = donburi.NewTag()

func TestSchedulerStageBarrier(t *testing.T) {
	w := ecs.NewWorld(nil)
	e := w.Spawn()
	var seen []string
	observe := func(label string) SystemFunc {
		return func(*ecs.CommandBuffer) error {
			state := "bare"
			if w.Has(e, testMarker) {
				state = "tagged"
			}
			seen = append(seen, label+"="+state)
			return nil
		}
	}
	s := NewScheduler(w, nil,
		Stage{Name: "write", Systems: []System{
			{Name: "tag", Run: func(buf *ecs.CommandBuffer) error {
				buf.Tag(e, testMarker)
				return nil
			}},
			{Name: "same-stage", Run: observe("same")},
		}},
		Stage{Name: "read", Systems: []System{
			{Name: "next-stage", Run: observe("next")},
		}},
	)
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if diff := cmp.Diff([]string{"same=bare", "next=tagged"}, seen); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"write", "read"}, s.Stages()); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	if s.Ticks() != 1 {
		t.Errorf("Ticks = %d, want 1", s.Ticks())
	}
}

func TestSchedulerFlushesInDeclarationOrder(t *testing.T) {
	w := ecs.NewWorld(nil)
	e := w.Spawn()
	s := NewScheduler(w, nil, Stage{Name: "write", Systems: []System{
		{Name: "first", Run: func(buf *ecs.CommandBuffer) error {
			ecs.Insert(buf, e, Width, 1)
			return nil
		}},
		{Name: "second", Run: func(buf *ecs.CommandBuffer) error {
			ecs.Insert(buf, e, Width, 2)
			return nil
		}},
	}})
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if got, _ := ecs.Get(w, e, Width); got != 2 {
		t.Errorf("Width = %d, want 2", got)
	}
}

func TestSchedulerErrorAbortsTick(t *testing.T) {
	w := ecs.NewWorld(nil)
	e := w.Spawn()
	boom := errors.New("boom")
	later := false
	s := NewScheduler(w, nil,
		Stage{Name: "fail", Systems: []System{
			{Name: "tagger", Run: func(buf *ecs.CommandBuffer) error {
				buf.Tag(e, testMarker)
				return nil
			}},
			{Name: "failer", Run: func(*ecs.CommandBuffer) error { return boom }},
		}},
		Stage{Name: "after", Systems: []System{
			{Name: "later", Run: func(*ecs.CommandBuffer) error {
				later = true
				return nil
			}},
		}},
	)
	err := s.Tick()
	if !errors.Is(err, boom) {
		t.Fatalf("Tick = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "failer") {
		t.Errorf("error %q does not name the system", err)
	}
	if later {
		t.Error("a later stage ran after the error")
	}
	if w.Has(e, testMarker) {
		t.Error("commands of the failing stage were applied")
	}
	if s.Ticks() != 0 {
		t.Errorf("Ticks = %d, want 0", s.Ticks())
	}
}

func TestSchedulerRejectsBadSystems(t *testing.T) {
	w := ecs.NewWorld(nil)
	noop := func(*ecs.CommandBuffer) error { return nil }
	tests := []struct {
		name   string
		stages []Stage
	}{
		{"duplicate", []Stage{{Name: "a", Systems: []System{{Name: "x", Run: noop}, {Name: "x", Run: noop}}}}},
		{"no body", []Stage{{Name: "a", Systems: []System{{Name: "x"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected a panic")
				}
				if msg, _ := r.(string); !strings.HasPrefix(msg, "zoml: ") {
					t.Errorf("panic %v lacks the zoml prefix", r)
				}
			}()
			NewScheduler(w, nil, tt.stages...)
		})
	}
}
