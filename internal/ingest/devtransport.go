package ingest

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultQueueCapacity = 256

// ErrTransportClosed is returned by Publish and Receive after Close.
var ErrTransportClosed = errors.New("ingest: transport closed")

// DevTransport is an in-process at-least-once transport backed by a channel.
// Deliveries that are neither acked nor nacked within the redelivery timeout
// are requeued, which is how a real broker surfaces a crashed consumer. It
// exists for single-binary deployments and tests; a broker-backed Transport
// replaces it in multi-node setups.
type DevTransport struct {
	queue             chan Event
	redeliveryTimeout time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewDevTransport creates a transport whose unacked deliveries are requeued
// after redeliveryTimeout. A timeout <= 0 disables redelivery.
func NewDevTransport(redeliveryTimeout time.Duration) *DevTransport {
	return &DevTransport{
		queue:             make(chan Event, defaultQueueCapacity),
		redeliveryTimeout: redeliveryTimeout,
		done:              make(chan struct{}),
	}
}

// Publish enqueues an event for delivery.
func (t *DevTransport) Publish(ctx context.Context, event Event) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	select {
	case t.queue <- event:
		return nil
	case <-t.done:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks for the next delivery.
func (t *DevTransport) Receive(ctx context.Context) (Delivery, error) {
	select {
	case event := <-t.queue:
		return t.newDelivery(event), nil
	case <-t.done:
		return nil, ErrTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the transport down; in-flight deliveries are dropped.
func (t *DevTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

func (t *DevTransport) newDelivery(event Event) *devDelivery {
	d := &devDelivery{transport: t, event: event}
	if t.redeliveryTimeout > 0 {
		d.timer = time.AfterFunc(t.redeliveryTimeout, d.requeue)
	}
	return d
}

func (t *DevTransport) requeue(event Event) {
	select {
	case t.queue <- event:
	case <-t.done:
	}
}

type devDelivery struct {
	transport *DevTransport
	event     Event
	timer     *time.Timer

	// settled guards against the redelivery timer racing a late ack; whoever
	// settles first wins, duplicates are the ledger's problem.
	once sync.Once
}

func (d *devDelivery) Event() Event {
	return d.event
}

func (d *devDelivery) Ack(ctx context.Context) error {
	d.once.Do(func() {
		if d.timer != nil {
			d.timer.Stop()
		}
	})
	return nil
}

func (d *devDelivery) Nack(ctx context.Context) error {
	d.once.Do(func() {
		if d.timer != nil {
			d.timer.Stop()
		}
		d.transport.requeue(d.event)
	})
	return nil
}

func (d *devDelivery) requeue() {
	d.once.Do(func() {
		d.transport.requeue(d.event)
	})
}
