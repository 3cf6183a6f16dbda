package store

import (
	"strings"
	"time"
)

// JobStatus represents the lifecycle of an ingest job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

var jobStatusSet = map[JobStatus]struct{}{
	JobProcessing: {},
	JobDone:       {},
	JobFailed:     {},
}

// ParseJobStatus converts a string into a known JobStatus.
func ParseJobStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := jobStatusSet[normalized]
	return normalized, ok
}

// VideoStatus represents the lifecycle of a video row.
type VideoStatus string

const (
	VideoProcessing VideoStatus = "processing"
	VideoReady      VideoStatus = "ready"
	VideoError      VideoStatus = "error"
)

// OccurrenceActive marks an occurrence as live in the catalog. Rows are
// never updated on conflict so the first evidence wins.
const OccurrenceActive = "active"

// Admission is the Job Ledger's verdict on a delivery event.
type Admission int

const (
	// AdmissionProcess means the caller owns the job and must drive it to a
	// terminal state.
	AdmissionProcess Admission = iota
	// AdmissionSkipDuplicate means another delivery already owns or finished
	// this job; the caller acknowledges and does nothing.
	AdmissionSkipDuplicate
)

func (a Admission) String() string {
	if a == AdmissionProcess {
		return "process"
	}
	return "skip_duplicate"
}

// Job is one row of the ingest ledger, keyed by (ObjectKey, Etag).
type Job struct {
	ObjectKey    string
	Etag         string
	VideoUID     string
	VideoID      *int64
	Status       JobStatus
	ErrorMessage string
	RetryCount   int
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Video is the dimension row for one ingested episode or clip source.
type Video struct {
	ID          int64
	VideoUID    string
	Title       string
	Duration    float64
	Status      VideoStatus
	StoragePath string
}

// Segment is one persisted scene of a video, immutable once written.
type Segment struct {
	ID      int64
	VideoID int64
	TStart  float64
	TEnd    float64
	Text    string
	Lang    string
	Meta    string
}

// FineUnit is a canonical dictionary entry, unique per (label, part of speech).
type FineUnit struct {
	ID           int64
	Label        string
	PartOfSpeech string
	Definition   string
}

// Occurrence links a segment to a fine unit with supporting evidence.
type Occurrence struct {
	ID         int64
	SegmentID  int64
	FineUnitID int64
	Evidence   string
	Status     string
}

// JobStats aggregates ledger counts per status for diagnostics.
type JobStats struct {
	Total      int
	Processing int
	Done       int
	Failed     int
}
