// Package memory keeps the most recent published events in process, for the
// ops API and for tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// DefaultCapacity bounds the number of retained events.
const DefaultCapacity = 256

// Publisher retains the last Capacity published payloads.
type Publisher struct {
	mu       sync.RWMutex
	capacity int
	seq      int
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// New returns a memory Publisher retaining up to capacity messages; a
// non-positive capacity means DefaultCapacity.
func New(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{capacity: capacity}
}

// Publish records the message and returns a pseudo ID. The oldest message is
// dropped once the capacity is reached.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("memory-%d", p.seq)
	if len(p.messages) == p.capacity {
		copy(p.messages, p.messages[1:])
		p.messages = p.messages[:len(p.messages)-1]
	}
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Messages returns the retained publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
