package zoml

import (
	"slices"

	"github.com/phanxgames/zoml/ecs"
)

// HitTest returns the renderables whose last laid out bounds contain (x, y),
// topmost first.
func (a *App) HitTest(x, y float64) []ecs.Entity {
	root, ok := a.builder.Root()
	if !ok {
		return nil
	}
	var hits []ecs.Entity
	for e := range a.rels.Descendants(root) {
		if r, ok := a.layout.Bounds(e); ok && r.Contains(x, y) {
			hits = append(hits, e)
		}
	}
	// Reverse painter order: the last drawn is on top.
	slices.Reverse(hits)
	return hits
}

// Pointer hit tests (x, y) and queues a PointerEvent for the topmost hit.
// Subscribers of ecs.PointerEventType receive it during the next Tick. It
// reports whether anything was hit.
func (a *App) Pointer(x, y float64) bool {
	hits := a.HitTest(x, y)
	if len(hits) == 0 {
		return false
	}
	r, _ := a.layout.Bounds(hits[0])
	ecs.PointerEventType.Publish(a.world.World, ecs.PointerEvent{
		Entity: hits[0],
		X:      x,
		Y:      y,
		LocalX: x - float64(r.Left),
		LocalY: y - float64(r.Top),
	})
	return true
}
