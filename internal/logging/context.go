package logging

import (
	"context"
	"log/slog"

	"clipper/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldObjectKey is the standardized structured logging key for the stored object a job refers to.
	FieldObjectKey = "object_key"
	// FieldEtag is the standardized structured logging key for the content etag half of the idempotency key.
	FieldEtag = "etag"
	// FieldVideoUID is the standardized structured logging key for video identifiers.
	FieldVideoUID = "video_uid"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldWorker is the standardized structured logging key for worker slot indexes.
	FieldWorker = "worker"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags operationally significant log lines for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing remediation hint.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if key, etag, ok := services.JobKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldObjectKey, key), slog.String(FieldEtag, etag))
	}
	if uid, ok := services.VideoUIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVideoUID, uid))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
