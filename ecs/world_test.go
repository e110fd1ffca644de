package ecs

import (
	"testing"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

type position struct{ X, Y int }

var (
	positionComp = donburi.NewComponentType[position]()
	markerTag    = donburi.NewTag()
	markedQuery  = donburi.NewQuery(filter.Contains(positionComp, markerTag))
)

func TestSpawnIsAliveWithoutComponents(t *testing.T) {
	w := NewWorld(nil)
	e := w.Spawn()
	if !w.Alive(e) {
		t.Fatal("spawned entity should be alive")
	}
	if w.Has(e, positionComp) {
		t.Error("spawned entity should have no position")
	}
	if got := len(w.All()); got != 1 {
		t.Errorf("All = %d, want 1", got)
	}
}

func TestNullIsNeverAlive(t *testing.T) {
	w := NewWorld(nil)
	if w.Alive(Null) {
		t.Error("Null should not be alive")
	}
	if _, ok := Get(w, Null, positionComp); ok {
		t.Error("Get on Null should fail")
	}
}

func TestSetGetStrip(t *testing.T) {
	w := NewWorld(nil)
	e := w.Spawn()
	Set(w, e, positionComp, position{X: 1, Y: 2})
	Set(w, e, positionComp, position{X: 3, Y: 4})
	got, ok := Get(w, e, positionComp)
	if !ok || got != (position{X: 3, Y: 4}) {
		t.Errorf("Get = %v, %v; want {3 4}, true", got, ok)
	}
	w.Strip(e, positionComp)
	w.Strip(e, positionComp)
	if w.Has(e, positionComp) {
		t.Error("position should be stripped")
	}
}

func TestCommandBufferDefersUntilFlush(t *testing.T) {
	w := NewWorld(nil)
	buf := NewCommandBuffer(w, "test")
	e := w.Spawn()
	Insert(buf, e, positionComp, position{X: 7})
	buf.Tag(e, markerTag)

	if n := len(w.Query(markedQuery)); n != 0 {
		t.Fatalf("query before flush = %d, want 0", n)
	}
	if got := buf.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if applied := buf.Flush(); applied != 2 {
		t.Errorf("Flush = %d, want 2", applied)
	}
	if got := w.Query(markedQuery); len(got) != 1 || got[0] != e {
		t.Errorf("query after flush = %v, want [%v]", got, e)
	}
	if buf.Len() != 0 {
		t.Error("buffer should be empty after flush")
	}
}

func TestCommandBufferOrder(t *testing.T) {
	w := NewWorld(nil)
	buf := NewCommandBuffer(w, "test")
	e := w.Spawn()
	Insert(buf, e, positionComp, position{X: 1})
	buf.Remove(e, positionComp)
	Insert(buf, e, positionComp, position{X: 2})
	buf.Flush()
	if got, _ := Get(w, e, positionComp); got.X != 2 {
		t.Errorf("X = %d, want 2", got.X)
	}
}

func TestCommandBufferDropsDeadEntities(t *testing.T) {
	w := NewWorld(nil)
	buf := NewCommandBuffer(w, "test")
	e := w.Spawn()
	buf.Despawn(e)
	Insert(buf, e, positionComp, position{X: 1})
	buf.Tag(e, markerTag)
	if applied := buf.Flush(); applied != 1 {
		t.Errorf("Flush = %d, want 1", applied)
	}
	if w.Alive(e) {
		t.Error("entity should be despawned")
	}
}

func TestQuerySnapshotAllowsMutation(t *testing.T) {
	w := NewWorld(nil)
	for i := range 5 {
		e := w.Spawn()
		Set(w, e, positionComp, position{X: i})
		w.Tag(e, markerTag)
	}
	for _, e := range w.Query(markedQuery) {
		w.Strip(e, markerTag)
	}
	if n := len(w.Query(markedQuery)); n != 0 {
		t.Errorf("marked = %d, want 0", n)
	}
}

func TestSystemEvents(t *testing.T) {
	w := NewWorld(nil)
	var received []SystemEvent
	SystemEventType.Subscribe(w.World, func(_ donburi.World, e SystemEvent) {
		received = append(received, e)
	})

	PublishResize(w.World, 800, 600)
	PublishResize(w.World, 100, 50)

	// Events are queued until processed.
	if len(received) != 0 {
		t.Fatalf("received %d events before processing", len(received))
	}
	SystemEventType.ProcessEvents(w.World)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if e := received[1]; e.Kind != RootWindowResized || e.Width != 100 || e.Height != 50 {
		t.Errorf("event 1: %+v", e)
	}
}

func TestPointerEventsMultipleSubscribers(t *testing.T) {
	w := NewWorld(nil)
	var count1, count2 int
	PointerEventType.Subscribe(w.World, func(donburi.World, PointerEvent) { count1++ })
	PointerEventType.Subscribe(w.World, func(donburi.World, PointerEvent) { count2++ })

	PointerEventType.Publish(w.World, PointerEvent{Entity: w.Spawn(), X: 1, Y: 2})
	events.ProcessAllEvents(w.World)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}

func TestCommandBufferReset(t *testing.T) {
	w := NewWorld(nil)
	buf := NewCommandBuffer(w, "test")
	e := w.Spawn()
	buf.Tag(e, markerTag)
	buf.Reset()
	if applied := buf.Flush(); applied != 0 {
		t.Errorf("Flush after Reset = %d, want 0", applied)
	}
	if w.Has(e, markerTag) {
		t.Error("reset command should not apply")
	}
}
