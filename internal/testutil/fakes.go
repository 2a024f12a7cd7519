package testutil

import (
	"context"
	"sync"
)

// Event is one call recorded by RecordingPublisher.
type Event struct {
	Type    string
	Subject string
	Data    interface{}
}

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event.
func (p *RecordingPublisher) Publish(_ context.Context, eventType, subject string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Type: eventType, Subject: subject, Data: data})
}

// Events returns a snapshot of the recorded events.
func (p *RecordingPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// OfType returns recorded events of one type.
func (p *RecordingPublisher) OfType(eventType string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Tx is a TxManager that runs fn directly and counts calls.
type Tx struct {
	mu    sync.Mutex
	calls int
}

// Transact runs fn.
func (t *Tx) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(ctx)
}

// Calls returns how many transactions were started.
func (t *Tx) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
