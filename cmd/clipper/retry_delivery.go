package main

import (
	"context"

	"clipper/internal/ingest"
	"clipper/internal/store"
)

// retryDelivery adapts a failed ledger job into a synthetic delivery.
// There is no broker to acknowledge, so Ack and Nack are no-ops; the ledger
// transition is what records the outcome.
type retryDelivery struct {
	event ingest.Event
}

func newRetryDelivery(job *store.Job) *retryDelivery {
	event := ingest.NewEvent(job.ObjectKey, job.Etag)
	event.VideoID = job.VideoID
	return &retryDelivery{event: event}
}

func (d *retryDelivery) Event() ingest.Event { return d.event }

func (d *retryDelivery) Ack(context.Context) error { return nil }

func (d *retryDelivery) Nack(context.Context) error { return nil }
