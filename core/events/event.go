package events

// Event represents a structured state change emitted by the treasury engine.
// Attributes carry the decoded payload as flat string pairs so downstream
// consumers (indexers, audit logs) never need the engine's internal types.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines so event emission is always optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
