package statechart

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a trigger for transitions in the state machine
type Event interface {
	GetID() string
	GetName() string
	GetData() any
	GetTimestamp() time.Time
	GetMetadata() map[string]any
}

// EventPriority selects the queue an event is posted to
type EventPriority int

const (
	// NormalPriority events go to the external queue
	NormalPriority EventPriority = iota
	// HighPriority events go to the internal queue and are processed first
	HighPriority
)

// BaseEvent provides a basic implementation of the Event interface
type BaseEvent struct {
	id        string
	name      string
	data      any
	timestamp time.Time
	metadata  map[string]any
}

// NewEvent creates a new basic event
func NewEvent(name string, data any) Event {
	return &BaseEvent{
		id:        uuid.NewString(),
		name:      name,
		data:      data,
		timestamp: time.Now(),
		metadata:  make(map[string]any),
	}
}

// NewEventWithMetadata creates a new event with metadata
func NewEventWithMetadata(name string, data any, metadata map[string]any) Event {
	return &BaseEvent{
		id:        uuid.NewString(),
		name:      name,
		data:      data,
		timestamp: time.Now(),
		metadata:  metadata,
	}
}

// GetID returns the unique event identifier
func (e *BaseEvent) GetID() string {
	return e.id
}

// GetName returns the event name
func (e *BaseEvent) GetName() string {
	return e.name
}

// GetData returns the event data
func (e *BaseEvent) GetData() any {
	return e.data
}

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time {
	return e.timestamp
}

// GetMetadata returns a copy of the event metadata
func (e *BaseEvent) GetMetadata() map[string]any {
	result := make(map[string]any, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// nullEvent is offered to eventless transitions before any queued event.
type nullEvent struct{}

func (nullEvent) GetID() string               { return "" }
func (nullEvent) GetName() string             { return "" }
func (nullEvent) GetData() any                { return nil }
func (nullEvent) GetTimestamp() time.Time     { return time.Time{} }
func (nullEvent) GetMetadata() map[string]any { return map[string]any{} }

// NullEvent is the event eventless transitions are tested against.
var NullEvent Event = nullEvent{}

// IsNullEvent reports whether e is the null event
func IsNullEvent(e Event) bool {
	_, ok := e.(nullEvent)
	return e == nil || ok
}

// DoneEventPrefix prefixes the names of completion events.
const DoneEventPrefix = "done.state."

// DoneEvent is posted to the internal queue when a compound state reaches
// a final child, or when every region of a parallel state has done so.
type DoneEvent struct {
	BaseEvent
	State StateID
	Final StateID
}

func newDoneEvent(state StateID, stateName string, final StateID) *DoneEvent {
	return &DoneEvent{
		BaseEvent: BaseEvent{
			id:        uuid.NewString(),
			name:      DoneEventPrefix + stateName,
			timestamp: time.Now(),
			metadata:  map[string]any{"state": stateName},
		},
		State: state,
		Final: final,
	}
}

// DoneEventName returns the name of the completion event of a state
func DoneEventName(stateName string) string {
	return DoneEventPrefix + stateName
}
