package registry

import (
	ffiguard "github.com/wippyai/ffi-guard"
)

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventTracked EventType = iota
	EventFreed
	EventOverwritten
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventTracked:
		return "tracked"
	case EventFreed:
		return "freed"
	case EventOverwritten:
		return "overwritten"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Value any
	Ptr   ffiguard.Ptr
	Tag   ffiguard.Tag
	Type  EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnRegistryEvent(Event)
}

// EntryInfo identifies one live entry in a registry snapshot.
type EntryInfo struct {
	Ptr ffiguard.Ptr
	Tag ffiguard.Tag
}
