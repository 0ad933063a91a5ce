package events

// Event represents a structured state change emitted by the settlement core.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers (indexers, notifiers,
// persistence sinks). Implementations must not call back into the emitting
// module: events are delivered strictly after state mutation completes.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Modules default to it so event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
