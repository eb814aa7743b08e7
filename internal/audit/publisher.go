package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by Emit when the worker has fallen behind.
var ErrBufferFull = errors.New("audit buffer full")

// DefaultBuffer is the publisher's inbox capacity.
const DefaultBuffer = 256

// Publisher hands audit events to a Worker through a buffered inbox. Emit is
// called under the model lock and never blocks; when the inbox is full the
// event is dropped.
type Publisher struct {
	inbox  chan Event
	onDrop func(Event)
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithDropHook is called for every event dropped on a full buffer.
func WithDropHook(fn func(Event)) PublisherOption {
	return func(p *Publisher) {
		p.onDrop = fn
	}
}

// NewPublisher constructs a publisher with an inbox of the given capacity.
func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	p := &Publisher{inbox: make(chan Event, buffer)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills in id, timestamp and category and queues the event.
func (p *Publisher) Emit(_ context.Context, base Event) error {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if base.Category == "" {
		base.Category = base.Action.Category()
	}
	select {
	case p.inbox <- base:
		return nil
	default:
		if p.onDrop != nil {
			p.onDrop(base)
		}
		return ErrBufferFull
	}
}

// Inbox is the channel a Worker drains.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
