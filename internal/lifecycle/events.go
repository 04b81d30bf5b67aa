package lifecycle

// Event represents a lifecycle event. Minimal and stable: name plus the
// generation/model it concerns and optional fields via key/values.
type Event struct {
	Name         string
	GenerationID string
	ModelID      string
	Fields       map[string]any
}

// EventPublisher receives events from the controller. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
