package services

import "context"

type contextKey string

const (
	jobKeyKey    contextKey = "job_key"
	videoUIDKey  contextKey = "video_uid"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

type jobKey struct {
	objectKey string
	etag      string
}

// WithJobKey annotates context with the idempotency key of the job in flight.
func WithJobKey(ctx context.Context, objectKey, etag string) context.Context {
	if objectKey == "" && etag == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKeyKey, jobKey{objectKey: objectKey, etag: etag})
}

// JobKeyFromContext extracts the job idempotency key if present.
func JobKeyFromContext(ctx context.Context) (string, string, bool) {
	if v, ok := ctx.Value(jobKeyKey).(jobKey); ok {
		return v.objectKey, v.etag, true
	}
	return "", "", false
}

// WithVideoUID annotates context with the video identifier.
func WithVideoUID(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, videoUIDKey, uid)
}

// VideoUIDFromContext returns the video identifier if present.
func VideoUIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(videoUIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
