package ingest

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Event is one delivery notification for a stored segment artifact. The
// transport may deliver it more than once; (ObjectKey, Etag) is the
// idempotency key and ID only correlates log lines across deliveries.
type Event struct {
	ID        string
	ObjectKey string
	Etag      string
	VideoUID  string
	VideoID   *int64
}

// NewEvent builds an event for a stored artifact, deriving VideoUID from the
// object key's basename.
func NewEvent(objectKey, etag string) Event {
	return Event{
		ID:        uuid.NewString(),
		ObjectKey: objectKey,
		Etag:      etag,
		VideoUID:  VideoUIDFromObjectKey(objectKey),
	}
}

// VideoUIDFromObjectKey strips path and extension from an object key:
// "sitcom_clips/ep01_scene_02.mp4" yields "ep01_scene_02".
func VideoUIDFromObjectKey(objectKey string) string {
	base := filepath.Base(objectKey)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
