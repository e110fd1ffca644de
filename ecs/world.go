package ecs

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"
	"github.com/yohamta/donburi/filter"
	"go.uber.org/zap"
)

// Entity is an opaque entity handle.
type Entity = donburi.Entity

// Null is the "no entity" handle.
var Null = donburi.Null

// alive marks every entity created through World. It keeps each entity in
// a non-empty archetype and lets All enumerate them.
var alive = donburi.NewTag()

var allQuery = donburi.NewQuery(filter.Contains(alive))

// World wraps a Donburi world. Structural changes made by systems go through
// a CommandBuffer; direct mutation is reserved for setup and tests.
type World struct {
	donburi.World
	log *zap.Logger
}

// NewWorld creates an empty world. A nil logger is replaced with a no-op one.
func NewWorld(log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{World: donburi.NewWorld(), log: log}
}

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger { return w.log }

// Spawn reserves a new entity id. The entity has no scene components until
// inserts for it are flushed.
func (w *World) Spawn() Entity {
	return w.Create(alive)
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	return e != Null && w.Valid(e)
}

// Despawn removes e immediately. Dead handles are ignored.
func (w *World) Despawn(e Entity) {
	if w.Alive(e) {
		w.Remove(e)
	}
}

// Has reports whether e is alive and carries c.
func (w *World) Has(e Entity, c component.IComponentType) bool {
	if !w.Alive(e) {
		return false
	}
	return w.Entry(e).HasComponent(c)
}

// Query snapshots the entities matching q. Callers may mutate the world
// while walking the result.
func (w *World) Query(q *donburi.Query) []Entity {
	var out []Entity
	q.Each(w.World, func(entry *donburi.Entry) {
		out = append(out, entry.Entity())
	})
	return out
}

// All snapshots every live entity.
func (w *World) All() []Entity {
	return w.Query(allQuery)
}

// Get returns the value of component c on e.
func Get[T any](w *World, e Entity, c *donburi.ComponentType[T]) (T, bool) {
	var zero T
	if !w.Has(e, c) {
		return zero, false
	}
	return c.GetValue(w.Entry(e)), true
}

// Set adds c to e if needed and stores v. It is a no-op for dead entities.
func Set[T any](w *World, e Entity, c *donburi.ComponentType[T], v T) {
	if !w.Alive(e) {
		return
	}
	entry := w.Entry(e)
	if !entry.HasComponent(c) {
		entry.AddComponent(c)
	}
	c.SetValue(entry, v)
}

// Tag adds the tag (or zero-valued component) c to e.
func (w *World) Tag(e Entity, c component.IComponentType) {
	if !w.Alive(e) {
		return
	}
	entry := w.Entry(e)
	if !entry.HasComponent(c) {
		entry.AddComponent(c)
	}
}

// Strip removes c from e if present.
func (w *World) Strip(e Entity, c component.IComponentType) {
	if !w.Alive(e) {
		return
	}
	entry := w.Entry(e)
	if entry.HasComponent(c) {
		entry.RemoveComponent(c)
	}
}
