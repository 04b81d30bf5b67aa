package lifecycle

import "sync"

// memoryPublisherCap bounds retained events so a long-running controller
// handed a MemoryPublisher cannot grow without limit.
const memoryPublisherCap = 1024

// MemoryPublisher retains the most recent lifecycle events for inspection,
// mainly from tests. Oldest events are dropped past the retention cap.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	if len(p.events) > memoryPublisherCap {
		p.events = p.events[len(p.events)-memoryPublisherCap:]
	}
	p.mu.Unlock()
}

// Events returns a copy of the retained events in publish order.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Named returns the retained events with the given name, in publish order.
func (p *MemoryPublisher) Named(name string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
