package ingest

import "context"

// Delivery is one received instance of an event. Ack confirms the transport
// may drop it; Nack requests redelivery. The consumer acks only after the
// job ledger reaches a terminal state for the event's key.
type Delivery interface {
	Event() Event
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// Transport carries events from the splitter to the ingest workers with
// at-least-once semantics. Receive blocks until a delivery is available or
// the context is cancelled.
type Transport interface {
	Publish(ctx context.Context, event Event) error
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}
