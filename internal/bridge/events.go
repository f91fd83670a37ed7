package bridge

// Event represents a child process lifecycle event.
// Minimal and stable: name + pid and optional fields via key/values.
type Event struct {
	Name   string
	PID    int
	Fields map[string]any
}

// Event names published by the bridge.
const (
	EventSpawnStart = "spawn_start"
	EventSpawnError = "spawn_error"
	EventTimeout    = "timeout"
	EventAborted    = "aborted"
	EventChildExit  = "child_exit"
)

// EventPublisher receives events from the bridge. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
