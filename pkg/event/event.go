// pkg/event/event.go
package event

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Type represents the type of event
type Type string

// Common event types
const (
	BodySpawned        Type = "body_spawned"
	BodyRetired        Type = "body_retired"
	ChunkGenerated     Type = "chunk_generated"
	ChunkRetired       Type = "chunk_retired"
	CollectiblePicked  Type = "collectible_picked"
	ObjectiveComplete  Type = "objective_complete"
	CraftRestarted     Type = "craft_restarted"
	PlacementFailed    Type = "placement_failed"
	PhysicsUnavailable Type = "physics_unavailable"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
}

// Subscription identifies a registered handler. Cancel removes it from the bus.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.Cancel != nil {
		s.Cancel()
	}
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	var once sync.Once
	return &Subscription{
		ID:   id,
		Type: eventType,
		Cancel: func() {
			once.Do(func() { b.remove(eventType, id) })
		},
	}
}

func (b *Bus) remove(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// copy so in-flight Publish snapshots stay intact
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = next
			}
			return
		}
	}
}

// Publish sends an event to all subscribed handlers. A nil bus drops the event.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}

	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// BodyEvent is published when a celestial body enters or leaves the world.
type BodyEvent struct {
	BaseEvent
	BodyID   uint64
	Position mgl64.Vec3
	Size     float64
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, bodyID uint64, pos mgl64.Vec3, size float64) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		BodyID:    bodyID,
		Position:  pos,
		Size:      size,
	}
}

// ChunkEvent carries the cell coordinates of a generated or retired chunk.
type ChunkEvent struct {
	BaseEvent
	X, Y, Z int
	Bodies  int
}

// NewChunkEvent creates a new chunk event
func NewChunkEvent(eventType Type, source interface{}, x, y, z, bodies int) *ChunkEvent {
	return &ChunkEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		X:         x,
		Y:         y,
		Z:         z,
		Bodies:    bodies,
	}
}

// ScoreEvent is published for collectible pickups and objective completion.
type ScoreEvent struct {
	BaseEvent
	CollectibleID uint64
	Score         int
	Target        int
}

// NewScoreEvent creates a new score event
func NewScoreEvent(eventType Type, source interface{}, collectibleID uint64, score, target int) *ScoreEvent {
	return &ScoreEvent{
		BaseEvent:     BaseEvent{EventType: eventType, Source: source},
		CollectibleID: collectibleID,
		Score:         score,
		Target:        target,
	}
}

// FailureEvent reports a non-fatal degradation such as a skipped placement.
type FailureEvent struct {
	BaseEvent
	Err error
}

// NewFailureEvent creates a new failure event
func NewFailureEvent(eventType Type, source interface{}, err error) *FailureEvent {
	return &FailureEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		Err:       err,
	}
}
