package ecs

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// SystemEventKind identifies a host event.
type SystemEventKind uint8

const (
	// RootWindowResized reports new window dimensions.
	RootWindowResized SystemEventKind = iota + 1
)

// SystemEvent carries host events into the world.
type SystemEvent struct {
	Kind   SystemEventKind
	Width  uint16
	Height uint16
}

// SystemEventType is the Donburi event type for host events. Systems drain it
// with ProcessEvents once per tick.
var SystemEventType = events.NewEventType[SystemEvent]()

// PointerEvent reports a pointer hit on a laid out entity.
type PointerEvent struct {
	Entity Entity
	X, Y   float64
	// LocalX and LocalY are relative to the entity's bounds.
	LocalX, LocalY float64
}

// PointerEventType is the Donburi event type for pointer hits. Subscribe to
// it to react to clicks on rendered controls.
var PointerEventType = events.NewEventType[PointerEvent]()

// PublishResize queues a RootWindowResized event.
func PublishResize(w donburi.World, width, height uint16) {
	SystemEventType.Publish(w, SystemEvent{Kind: RootWindowResized, Width: width, Height: height})
}
