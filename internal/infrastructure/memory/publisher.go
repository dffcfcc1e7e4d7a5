package memory

import (
	"context"
	"sync"

	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
)

// Publisher records published events instead of sending them anywhere.
type Publisher struct {
	mu     sync.Mutex
	events []event.Event

	// Err, when set, is returned from Publish and nothing is recorded.
	Err error
}

func (p *Publisher) Publish(_ context.Context, events ...event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *Publisher) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.events...)
}

// OfType filters the recorded events by tag.
func (p *Publisher) OfType(t event.Type) []event.Event {
	var out []event.Event
	for _, e := range p.Events() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
