// Package ecs is the entity store behind zoml, built on [Donburi].
//
// [World] embeds a Donburi world and adds snapshot queries, typed component
// access and liveness checks. Systems never mutate the world while iterating
// it: they record inserts, removals and despawns in a [CommandBuffer], and
// the scheduler flushes buffers at stage barriers.
//
// Host events (window resizes) and pointer hits travel as Donburi events,
// see [SystemEventType] and [PointerEventType].
//
// Usage:
//
//	w := ecs.NewWorld(logger)
//	buf := ecs.NewCommandBuffer(w, "build")
//	e := w.Spawn()
//	ecs.Insert(buf, e, Position, Point{X: 1})
//	buf.Flush()
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
