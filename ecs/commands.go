package ecs

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"
	"go.uber.org/zap"
)

type command struct {
	entity Entity
	apply  func(w *World)
}

// CommandBuffer records structural changes and applies them at Flush, in
// the order they were recorded. Commands aimed at entities that died before
// the flush are dropped.
type CommandBuffer struct {
	world *World
	name  string
	cmds  []command
}

// NewCommandBuffer creates a buffer bound to w. The name only shows up in
// logs.
func NewCommandBuffer(w *World, name string) *CommandBuffer {
	return &CommandBuffer{world: w, name: name}
}

// World returns the world the buffer flushes into.
func (b *CommandBuffer) World() *World { return b.world }

// Len returns the number of pending commands.
func (b *CommandBuffer) Len() int { return len(b.cmds) }

// Insert records adding (or overwriting) component c with value v on e.
func Insert[T any](b *CommandBuffer, e Entity, c *donburi.ComponentType[T], v T) {
	b.cmds = append(b.cmds, command{entity: e, apply: func(w *World) { Set(w, e, c, v) }})
}

// Tag records adding the tag c to e.
func (b *CommandBuffer) Tag(e Entity, c component.IComponentType) {
	b.cmds = append(b.cmds, command{entity: e, apply: func(w *World) { w.Tag(e, c) }})
}

// Remove records removing component c from e.
func (b *CommandBuffer) Remove(e Entity, c component.IComponentType) {
	b.cmds = append(b.cmds, command{entity: e, apply: func(w *World) { w.Strip(e, c) }})
}

// Despawn records removing e from the world.
func (b *CommandBuffer) Despawn(e Entity) {
	b.cmds = append(b.cmds, command{entity: e, apply: func(w *World) { w.Despawn(e) }})
}

// Reset discards every pending command.
func (b *CommandBuffer) Reset() {
	clear(b.cmds)
	b.cmds = b.cmds[:0]
}

// Flush applies every pending command and empties the buffer. It returns
// the number of commands applied.
func (b *CommandBuffer) Flush() int {
	applied, dropped := 0, 0
	for _, cmd := range b.cmds {
		if !b.world.Alive(cmd.entity) {
			dropped++
			continue
		}
		cmd.apply(b.world)
		applied++
	}
	clear(b.cmds)
	b.cmds = b.cmds[:0]
	if dropped > 0 {
		b.world.log.Debug("dropped commands for dead entities",
			zap.String("buffer", b.name), zap.Int("dropped", dropped))
	}
	return applied
}
