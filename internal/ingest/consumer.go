package ingest

import (
	"context"
	"log/slog"
	"time"

	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/store"
)

// Processor drives an admitted job to a terminal ledger state.
type Processor interface {
	Process(ctx context.Context, event Event) error
}

// ConsumerConfig bounds how deliveries are admitted.
type ConsumerConfig struct {
	// JobStaleTimeout is the age after which a processing job is presumed
	// abandoned and may be reclaimed by a new delivery.
	JobStaleTimeout time.Duration
}

// Consumer turns at-least-once deliveries into exactly-once processing by
// funneling every delivery through the ledger's atomic admission before any
// work happens. Duplicates are acknowledged without side effects.
type Consumer struct {
	store     *store.Store
	processor Processor
	cfg       ConsumerConfig
	logger    *slog.Logger
}

// NewConsumer constructs a consumer. A nil logger disables logging.
func NewConsumer(st *store.Store, processor Processor, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	return &Consumer{
		store:     st,
		processor: processor,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "consumer"),
	}
}

// Consume handles one delivery end to end. The delivery is acknowledged only
// once the ledger holds a terminal verdict for it: immediately for
// duplicates, after Process for admitted jobs. Admission errors nack the
// delivery so the transport redelivers it later.
func (c *Consumer) Consume(ctx context.Context, delivery Delivery) error {
	event := delivery.Event()
	logger := c.logger.With(
		logging.String(logging.FieldObjectKey, event.ObjectKey),
		logging.String(logging.FieldEtag, event.Etag),
		logging.String(logging.FieldVideoUID, event.VideoUID),
		logging.String(logging.FieldCorrelationID, event.ID))

	admission, err := c.store.AdmitJob(ctx, event.ObjectKey, event.Etag, event.VideoUID, event.VideoID, c.cfg.JobStaleTimeout)
	if err != nil {
		logger.Error("admission failed", logging.Error(err))
		if nackErr := delivery.Nack(ctx); nackErr != nil {
			logger.Error("nack failed", logging.Error(nackErr))
		}
		return services.Wrap(services.ErrTransient, "consumer", "admit", "ledger admission", err)
	}

	if admission == store.AdmissionSkipDuplicate {
		logger.Info("duplicate delivery skipped")
		return delivery.Ack(ctx)
	}

	// Process always records a terminal state before returning, so the ack
	// below never orphans a job: a crash beforehand leaves a stale processing
	// row that a redelivery reclaims.
	processErr := c.processor.Process(ctx, event)
	if ackErr := delivery.Ack(ctx); ackErr != nil {
		logger.Error("ack failed", logging.Error(ackErr))
		if processErr == nil {
			return ackErr
		}
	}
	return processErr
}
